package apperr

const MsgTryAgain = "Something went wrong. Please try again."

var (
	// Auth categories shown to users
	ErrBadCredentials   = Unauthorized("Incorrect email or password. Please try again.")
	ErrDuplicateAccount = AlreadyExists("This email is already registered. Try logging in instead.")
	ErrWeakSecret       = InvalidArg("Password is too weak. Please use at least 6 characters.")
	ErrGeneric          = New(CodeUnknown, MsgTryAgain)

	ErrInvalidEmail    = InvalidArg("Please enter a valid email address.")
	ErrNotLoggedIn     = Unauthorized("Please log in first.")
	ErrChatNotFound    = NotFound("chat not found")
	ErrNotParticipant  = Forbidden("you are not part of this chat")
	ErrInvalidPath     = InvalidArg("invalid path")
	ErrInvalidTheme    = InvalidArg("unknown theme")
	ErrStoreClosed     = New(CodeUnavailable, "realtime store is closed")
	ErrSendFailed      = New(CodeUnavailable, "Your message couldn't be sent. Please try again.")
	ErrNoPassphrase    = New(CodeFailedPrecondition, "Enter your shared passphrase to open the chat.")
	ErrSessionInactive = New(CodeFailedPrecondition, "chat session is not active")
)

func ErrStoreFailure(cause error) error {
	return Wrap(CodeUnavailable, "realtime store unavailable", cause)
}

func ErrRepositoryFailure(cause error) error {
	return Wrap(CodeInternal, MsgTryAgain, cause)
}
