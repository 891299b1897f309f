package auth

// FlowDeps are the collaborators shared by the account flows
type FlowDeps struct {
	Repo     RepositoryManager
	Hasher   PasswordHasher
	Tokens   TokenService
	Sessions SessionRegistry
	Notifier Notifier
	Activity ActivitySink
	Logger   Logger
}

// Flows groups one handler per account flow
type Flows struct {
	Register           *RegisterUserHandler
	Login              *LoginUserHandler
	Logout             *LogoutUserHandler
	ForgotPassword     *InitializePasswordResetHandler
	ResetPassword      *FinalizePasswordResetHandler
	ResendVerification *AccountVerificationHandler
	VerifyEmail        *VerifyEmailHandler
}

// NewFlows wires every flow handler over deps
func NewFlows(deps FlowDeps) *Flows {
	logger := normalizeLogger(deps.Logger)
	activity := normalizeActivitySink(deps.Activity)

	return &Flows{
		Register: NewRegisterUserHandler(deps.Repo, deps.Hasher, deps.Notifier).
			WithActivitySink(activity).
			WithLogger(logger),
		Login: NewLoginUserHandler(deps.Repo, deps.Hasher, deps.Tokens, deps.Sessions).
			WithActivitySink(activity).
			WithLogger(logger),
		Logout: NewLogoutUserHandler(deps.Sessions, deps.Tokens).
			WithActivitySink(activity).
			WithLogger(logger),
		ForgotPassword: NewInitializePasswordResetHandler(deps.Repo, deps.Notifier).
			WithActivitySink(activity).
			WithLogger(logger),
		ResetPassword: NewFinalizePasswordResetHandler(deps.Repo, deps.Hasher).
			WithActivitySink(activity).
			WithLogger(logger),
		ResendVerification: NewAccountVerificationHandler(deps.Repo, deps.Notifier).
			WithActivitySink(activity).
			WithLogger(logger),
		VerifyEmail: NewVerifyEmailHandler(deps.Repo).
			WithActivitySink(activity).
			WithLogger(logger),
	}
}
