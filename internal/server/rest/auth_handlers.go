package rest

import (
	"net/http"
)

type registerRequest struct {
	Fullname        string `json:"fullname"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req, []formField{
		{"fullname", &req.Fullname},
		{"username", &req.Username},
		{"email", &req.Email},
		{"password", &req.Password},
		{"confirm_password", &req.ConfirmPassword},
	}); err != nil {
		s.writeError(w, r, err)
		return
	}

	pair, err := s.auth.Register(r.Context(), req.Fullname, req.Username, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeTokens(w, pair)
}

type loginRequest struct {
	EmailOrUsername string `json:"email_or_username"`
	Password        string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req, []formField{
		{"email_or_username", &req.EmailOrUsername},
		// OAuth2 password flow clients send "username"
		{"username", &req.EmailOrUsername},
		{"password", &req.Password},
	}); err != nil {
		s.writeError(w, r, err)
		return
	}

	pair, err := s.auth.Login(r.Context(), req.EmailOrUsername, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeTokens(w, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(w, r, &req, []formField{{"refresh_token", &req.RefreshToken}}); err != nil {
		s.writeError(w, r, err)
		return
	}

	pair, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeTokens(w, pair)
}

type checkTokenRequest struct {
	AccessToken string `json:"access_token"`
}

func (s *Server) handleCheckToken(w http.ResponseWriter, r *http.Request) {
	var req checkTokenRequest
	if err := decode(w, r, &req, []formField{{"access_token", &req.AccessToken}}); err != nil {
		s.writeError(w, r, err)
		return
	}

	identity, err := s.auth.Verify(r.Context(), req.AccessToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, identity)
}

type emailRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleSendForgotPasswordOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decode(w, r, &req, []formField{{"email", &req.Email}}); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.auth.SendEmailForgotPasswordOTP(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, nil)
}

type otpCodeRequest struct {
	Email   string `json:"email"`
	Code    string `json:"code"`
	OtpCode string `json:"otp_code"`
}

func (o *otpCodeRequest) code() string {
	if o.Code != "" {
		return o.Code
	}
	return o.OtpCode
}

func (s *Server) handleVerifyForgotPasswordOTP(w http.ResponseWriter, r *http.Request) {
	var req otpCodeRequest
	if err := decode(w, r, &req, []formField{
		{"email", &req.Email},
		{"code", &req.Code},
		{"otp_code", &req.OtpCode},
	}); err != nil {
		s.writeError(w, r, err)
		return
	}

	otpID, err := s.auth.VerifyForgotPasswordOTP(r.Context(), req.Email, req.code())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, map[string]string{"otp_id": otpID})
}

type changeForgottenPasswordRequest struct {
	OtpID           string `json:"otp_id"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (s *Server) handleChangeForgottenPassword(w http.ResponseWriter, r *http.Request) {
	var req changeForgottenPasswordRequest
	if err := decode(w, r, &req, []formField{
		{"otp_id", &req.OtpID},
		{"new_password", &req.NewPassword},
		{"confirm_password", &req.ConfirmPassword},
	}); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.auth.ChangeForgottenPassword(r.Context(), req.OtpID, req.NewPassword, req.ConfirmPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, nil)
}

func (s *Server) handleSendVerifyEmailOTP(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	if err := s.auth.SendVerifyEmailOTP(r.Context(), identity.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, nil)
}

func (s *Server) handleVerifyEmailOTP(w http.ResponseWriter, r *http.Request) {
	var req otpCodeRequest
	if err := decode(w, r, &req, []formField{
		{"code", &req.Code},
		{"otp_code", &req.OtpCode},
	}); err != nil {
		s.writeError(w, r, err)
		return
	}

	identity, _ := IdentityFromContext(r.Context())
	if err := s.auth.VerifyEmailOTP(r.Context(), identity.ID, req.code()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, nil)
}
