package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/quickmart/internal/server/services"
)

const profilePictureField = "profile_picture"

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	profile, err := s.users.GetMe(r.Context(), identity.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, profile)
}

func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	if err := s.users.Delete(r.Context(), identity.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, nil)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch services.ProfilePatch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&patch); err != nil {
		s.writeError(w, r, errMalformedBody.WithCause(err))
		return
	}

	identity, _ := IdentityFromContext(r.Context())
	profile, err := s.users.UpdateProfile(r.Context(), identity.ID, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, profile)
}

type passwordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (s *Server) handleCheckPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decode(w, r, &req, []formField{{"password", &req.Password}}); err != nil {
		s.writeError(w, r, err)
		return
	}

	identity, _ := IdentityFromContext(r.Context())
	if err := s.users.CheckPassword(r.Context(), identity.ID, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, nil)
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decode(w, r, &req, []formField{
		{"password", &req.Password},
		{"confirm_password", &req.ConfirmPassword},
	}); err != nil {
		s.writeError(w, r, err)
		return
	}

	identity, _ := IdentityFromContext(r.Context())
	if err := s.users.UpdatePassword(r.Context(), identity.ID, req.Password, req.ConfirmPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, nil)
}

func (s *Server) handleUpdateProfilePicture(w http.ResponseWriter, r *http.Request) {
	// room for the multipart envelope around the file itself
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxProfilePictureSize+64<<10)
	if err := r.ParseMultipartForm(services.MaxProfilePictureSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, services.ErrImageTooLarge)
			return
		}
		s.writeError(w, r, errMalformedBody.WithCause(err))
		return
	}

	file, header, err := r.FormFile(profilePictureField)
	if err != nil {
		s.writeError(w, r, errMalformedBody.WithDetail("missing "+profilePictureField+" file").WithCause(err))
		return
	}
	defer file.Close()

	if header.Size > services.MaxProfilePictureSize {
		s.writeError(w, r, services.ErrImageTooLarge)
		return
	}

	identity, _ := IdentityFromContext(r.Context())
	profile, err := s.users.UpdateProfilePicture(r.Context(), identity.ID, file, header.Header.Get("Content-Type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, profile)
}
