package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"
	ErrProctorAccessOnly  ErrCode = "PROCTOR_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Admission / session lifecycle ─────────────────────────────────
	ErrExamNotFound        ErrCode = "EXAM_NOT_FOUND"
	ErrParticipantNotFound ErrCode = "PARTICIPANT_NOT_FOUND"
	ErrSessionNotFound     ErrCode = "SESSION_NOT_FOUND"
	ErrAlreadySubmitted    ErrCode = "ALREADY_SUBMITTED"
	ErrExamNotStarted      ErrCode = "EXAM_NOT_STARTED"
	ErrQuestionNotFound    ErrCode = "QUESTION_NOT_FOUND"
	ErrOptionNotFound      ErrCode = "OPTION_NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Nama pengguna atau kata sandi salah."
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."
	case ErrTokenExpired:
		return "Token autentikasi telah kedaluwarsa."
	case ErrProctorAccessOnly:
		return "Sumber daya ini terbatas untuk pengawas."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Admission / session lifecycle ─────────────────────────────────
	case ErrExamNotFound:
		return "Ujian tidak ditemukan."
	case ErrParticipantNotFound:
		return "Peserta tidak ditemukan. Silakan hubungi pengawas."
	case ErrSessionNotFound:
		return "Sesi ujian tidak ditemukan."
	case ErrAlreadySubmitted:
		return "Peserta sudah mengerjakan ujian."
	case ErrExamNotStarted:
		return "Ujian belum dimulai."
	case ErrQuestionNotFound:
		return "Soal tidak ditemukan."
	case ErrOptionNotFound:
		return "Pilihan jawaban tidak ditemukan."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
