package config

type WorkerKeyStruct struct {
	PersistAnswersQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue: "persist_answers_queue",
}
