package auth

import (
	"github.com/gofiber/fiber/v2"
)

// Response messages
const (
	MsgRegistered         = "Registration successful. Please login to continue."
	MsgLoggedIn           = "Login successful"
	MsgLoggedOut          = "Logout successful"
	MsgResetRequested     = "If that email exists, a password reset link has been sent."
	MsgPasswordReset      = "Password reset successful. You can now login with your new password."
	MsgVerificationSent   = "Verification email sent successfully."
	MsgEmailVerified      = "Email verified successfully! You can now use all features."
	MsgEmailAlreadyVerify = "Email is already verified."
	MsgBalanceRetrieved   = "Balance retrieved successfully"
)

type AuthControllerRoutes struct {
	Register           string
	Login              string
	Logout             string
	ForgotPassword     string
	ResetPassword      string
	ResendVerification string
	VerifyEmail        string
}

type AuthController struct {
	Logger Logger
	Config Config
	Flows  *Flows
	Routes *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(cfg Config, flows *Flows, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Config: cfg,
		Flows:  flows,
		Routes: &AuthControllerRoutes{
			Register:           "/register",
			Login:              "/login",
			Logout:             "/logout",
			ForgotPassword:     "/forgot-password",
			ResetPassword:      "/reset-password",
			ResendVerification: "/resend-verification",
			VerifyEmail:        "/verify-email",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	return c
}

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// RegisterAuthRoutes mounts the account flows, normally under /api/auth
func RegisterAuthRoutes(app fiber.Router, controller *AuthController) {
	app.Post(controller.Routes.Register, controller.Register).Name("auth.register")
	app.Post(controller.Routes.Login, controller.Login).Name("auth.login")
	app.Post(controller.Routes.Logout, controller.Logout).Name("auth.logout")
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPassword).Name("auth.forgot-password")
	app.Post(controller.Routes.ResetPassword, controller.ResetPassword).Name("auth.reset-password")
	app.Post(controller.Routes.ResendVerification, controller.ResendVerification).Name("auth.resend-verification")
	app.Post(controller.Routes.VerifyEmail, controller.VerifyEmail).Name("auth.verify-email")
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return ErrMalformedBody
	}
	return nil
}

func (a *AuthController) Register(c *fiber.Ctx) error {
	payload := RegisterUserMessage{}
	if err := parseBody(c, &payload); err != nil {
		return err
	}

	var user *User
	payload.OnResponse = func(u *User) { user = u }

	if err := a.Flows.Register.Execute(c.UserContext(), payload); err != nil {
		return err
	}

	return SendData(c, fiber.StatusCreated, MsgRegistered, user.Public())
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := LoginUserMessage{}
	if err := parseBody(c, &payload); err != nil {
		return err
	}

	var resp *LoginUserResponse
	payload.OnResponse = func(r *LoginUserResponse) { resp = r }

	if err := a.Flows.Login.Execute(c.UserContext(), payload); err != nil {
		return err
	}

	SetSessionCookie(c, a.Config, resp.Token)

	return SendData(c, fiber.StatusOK, MsgLoggedIn, fiber.Map{
		"username": resp.User.Username,
		"role":     resp.User.Role,
		"token":    resp.Token,
	})
}

// Logout revokes the session named by the cookie and always clears it
func (a *AuthController) Logout(c *fiber.Ctx) error {
	payload := LogoutUserMessage{
		Token: c.Cookies(cookieName(a.Config)),
	}

	if err := a.Flows.Logout.Execute(c.UserContext(), payload); err != nil {
		return err
	}

	ClearSessionCookie(c, a.Config)

	return SendData(c, fiber.StatusOK, MsgLoggedOut, nil)
}

func (a *AuthController) ForgotPassword(c *fiber.Ctx) error {
	payload := InitializePasswordResetMessage{}
	if err := parseBody(c, &payload); err != nil {
		return err
	}

	if err := a.Flows.ForgotPassword.Execute(c.UserContext(), payload); err != nil {
		return err
	}

	return SendData(c, fiber.StatusOK, MsgResetRequested, nil)
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	payload := FinalizePasswordResetMessage{}
	if err := parseBody(c, &payload); err != nil {
		return err
	}

	if err := a.Flows.ResetPassword.Execute(c.UserContext(), payload); err != nil {
		return err
	}

	return SendData(c, fiber.StatusOK, MsgPasswordReset, nil)
}

func (a *AuthController) ResendVerification(c *fiber.Ctx) error {
	payload := AccountVerificationMessage{}
	if err := parseBody(c, &payload); err != nil {
		return err
	}

	if err := a.Flows.ResendVerification.Execute(c.UserContext(), payload); err != nil {
		return err
	}

	return SendData(c, fiber.StatusOK, MsgVerificationSent, nil)
}

func (a *AuthController) VerifyEmail(c *fiber.Ctx) error {
	payload := VerifyEmailMessage{}
	if err := parseBody(c, &payload); err != nil {
		return err
	}

	var resp *VerifyEmailResponse
	payload.OnResponse = func(r *VerifyEmailResponse) { resp = r }

	if err := a.Flows.VerifyEmail.Execute(c.UserContext(), payload); err != nil {
		return err
	}

	if resp.AlreadyVerified {
		return SendData(c, fiber.StatusOK, MsgEmailAlreadyVerify, nil)
	}
	return SendData(c, fiber.StatusOK, MsgEmailVerified, nil)
}

// UserController serves the protected account reads
type UserController struct {
	Users  *UserProvider
	Logger Logger
}

func NewUserController(users *UserProvider) *UserController {
	return &UserController{
		Users:  users,
		Logger: defLogger{},
	}
}

// RegisterUserRoutes mounts the protected reads behind the gate, normally
// under /api/user
func RegisterUserRoutes(app fiber.Router, gate *Gate, controller *UserController) {
	protected := gate.Middleware()
	app.Get("/balance", protected, controller.Balance).Name("user.balance")
	app.Get("/profile", protected, controller.Profile).Name("user.profile")
}

func (u *UserController) current(c *fiber.Ctx) (*User, error) {
	identity, ok := IdentityFromRequest(c)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return u.Users.FindByIdentity(c.UserContext(), identity)
}

func (u *UserController) Balance(c *fiber.Ctx) error {
	user, err := u.current(c)
	if err != nil {
		return err
	}

	return SendData(c, fiber.StatusOK, MsgBalanceRetrieved, fiber.Map{
		"username": user.Username,
		"balance":  user.Balance,
	})
}

func (u *UserController) Profile(c *fiber.Ctx) error {
	user, err := u.current(c)
	if err != nil {
		return err
	}

	return SendData(c, fiber.StatusOK, "", user.Public())
}
