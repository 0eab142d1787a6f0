package handler

import (
	"context"
	"encoding/json"
	"errors"
	"go-user-api/common"
	"go-user-api/logger"
	"go-user-api/model"
	"go-user-api/service"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserHandler serves the /api/v1/users endpoints.
type UserHandler struct {
	users   *service.UserService
	auth    *service.AuthService
	cookies CookieOptions
	uploads UploadOptions
}

func NewUserHandler(users *service.UserService, auth *service.AuthService, cookies CookieOptions, uploads UploadOptions) *UserHandler {
	return &UserHandler{
		users:   users,
		auth:    auth,
		cookies: cookies,
		uploads: uploads,
	}
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates a user from a multipart form. The avatar file is required, the cover image is optional.
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Param        fullName    formData  string  true   "Full name"
// @Param        username    formData  string  true   "Username"
// @Param        email       formData  string  true   "Email"
// @Param        password    formData  string  true   "Password"
// @Param        avatar      formData  file    true   "Avatar image"
// @Param        coverImage  formData  file    false  "Cover image"
// @Success      201  {object}  common.APIResponse{data=model.User}
// @Failure      400  {object}  common.APIResponse "Missing fields or invalid file"
// @Failure      409  {object}  common.APIResponse "Username or email already taken"
// @Failure      502  {object}  common.APIResponse "Media upload failed"
// @Router       /api/v1/users/register [post]
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	files, err := h.uploads.parseMultipart(w, r, service.AvatarField, service.CoverImageField)
	if err != nil {
		return toAppError(err, "Could not read upload")
	}
	defer cleanup(files)

	req := model.RegisterRequest{
		FullName: r.FormValue("fullName"),
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}
	if appErr := common.ValidateStruct(&req); appErr != nil {
		return appErr
	}

	logger.Log.WithFields(logrus.Fields{
		"username": req.Username,
		"email":    req.Email,
	}).Info("Register request received")

	user, err := h.users.Register(r.Context(), req, files)
	if err != nil {
		return toAppError(err, "Something went wrong while registering the user")
	}

	common.Respond(w, http.StatusCreated, user, "User registered successfully")
	return nil
}

// Login godoc
// @Summary      Log in
// @Description  Verifies a username or email with a password and issues an access/refresh token pair, also set as HttpOnly cookies.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        credentials  body      model.LoginRequest  true  "Username or email, and password"
// @Success      200  {object}  common.APIResponse{data=model.LoginResponse}
// @Failure      400  {object}  common.APIResponse
// @Failure      401  {object}  common.APIResponse "Invalid credentials"
// @Router       /api/v1/users/login [post]
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	user, pair, err := h.auth.Login(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return toAppError(err, "Something went wrong while logging in")
	}

	h.cookies.setSessionCookies(w, pair)
	common.Respond(w, http.StatusOK, model.LoginResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "User logged in successfully")
	return nil
}

// Logout godoc
// @Summary      Log out
// @Description  Drops the stored refresh token and clears the session cookies.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  common.APIResponse
// @Failure      401  {object}  common.APIResponse
// @Router       /api/v1/users/logout [post]
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, ok := UserFromContext(r.Context())
	if !ok {
		return toAppError(service.ErrTokenMissing, "")
	}

	if err := h.auth.Logout(r.Context(), user.ID); err != nil {
		return toAppError(err, "Something went wrong while logging out")
	}

	h.cookies.clearSessionCookies(w)
	common.Respond(w, http.StatusOK, nil, "User logged out successfully")
	return nil
}

// RefreshToken godoc
// @Summary      Refresh the session
// @Description  Exchanges the refresh token (cookie or body) for a new token pair. Each refresh token can be used once.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      model.RefreshRequest  false  "Refresh token, when not sent as a cookie"
// @Success      200  {object}  common.APIResponse{data=model.TokenPair}
// @Failure      401  {object}  common.APIResponse "Missing, invalid or already used refresh token"
// @Router       /api/v1/users/refresh-token [post]
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) *common.AppError {
	token := refreshTokenFromRequest(r)
	pair, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		return toAppError(err, "Something went wrong while refreshing the session")
	}

	h.cookies.setSessionCookies(w, pair)
	common.Respond(w, http.StatusOK, pair, "Access token refreshed")
	return nil
}

// CurrentUser godoc
// @Summary      Get the current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  common.APIResponse{data=model.User}
// @Failure      401  {object}  common.APIResponse
// @Router       /api/v1/users/current-user [get]
func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, ok := UserFromContext(r.Context())
	if !ok {
		return toAppError(service.ErrTokenMissing, "")
	}

	common.Respond(w, http.StatusOK, user, "Current user fetched successfully")
	return nil
}

// ChangePassword godoc
// @Summary      Change password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      model.ChangePasswordRequest  true  "Old and new password"
// @Success      200  {object}  common.APIResponse
// @Failure      400  {object}  common.APIResponse
// @Failure      401  {object}  common.APIResponse "Wrong old password"
// @Router       /api/v1/users/change-password [post]
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, ok := UserFromContext(r.Context())
	if !ok {
		return toAppError(service.ErrTokenMissing, "")
	}

	var req model.ChangePasswordRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	if err := h.auth.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		return toAppError(err, "Something went wrong while changing the password")
	}

	common.Respond(w, http.StatusOK, nil, "Password changed successfully")
	return nil
}

// UpdateAccount godoc
// @Summary      Update account details
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      model.UpdateAccountRequest  true  "New full name and email"
// @Success      200  {object}  common.APIResponse{data=model.User}
// @Failure      400  {object}  common.APIResponse
// @Failure      409  {object}  common.APIResponse "Email already in use"
// @Router       /api/v1/users/update-account [patch]
func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, ok := UserFromContext(r.Context())
	if !ok {
		return toAppError(service.ErrTokenMissing, "")
	}

	var req model.UpdateAccountRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	updated, err := h.users.UpdateAccountDetails(r.Context(), user.ID, req.FullName, req.Email)
	if err != nil {
		return toAppError(err, "Something went wrong while updating the account")
	}

	common.Respond(w, http.StatusOK, updated, "Account details updated successfully")
	return nil
}

// UpdateAvatar godoc
// @Summary      Replace the avatar
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        avatar  formData  file  true  "Avatar image"
// @Success      200  {object}  common.APIResponse{data=model.User}
// @Failure      400  {object}  common.APIResponse
// @Failure      502  {object}  common.APIResponse "Media upload failed"
// @Router       /api/v1/users/avatar [patch]
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) *common.AppError {
	return h.replaceImage(w, r, service.AvatarField, h.users.UpdateAvatar, "Avatar updated successfully")
}

// UpdateCoverImage godoc
// @Summary      Replace the cover image
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        coverImage  formData  file  true  "Cover image"
// @Success      200  {object}  common.APIResponse{data=model.User}
// @Failure      400  {object}  common.APIResponse
// @Failure      502  {object}  common.APIResponse "Media upload failed"
// @Router       /api/v1/users/cover-image [patch]
func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) *common.AppError {
	return h.replaceImage(w, r, service.CoverImageField, h.users.UpdateCoverImage, "Cover image updated successfully")
}

type imageUpdater func(ctx context.Context, id bson.ObjectID, file *model.UploadedFile) (*model.User, error)

func (h *UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater, message string) *common.AppError {
	user, ok := UserFromContext(r.Context())
	if !ok {
		return toAppError(service.ErrTokenMissing, "")
	}

	files, err := h.uploads.parseMultipart(w, r, field)
	if err != nil {
		return toAppError(err, "Could not read upload")
	}
	defer cleanup(files)

	updated, err := update(r.Context(), user.ID, files.First(field))
	if err != nil {
		return toAppError(err, "Something went wrong while updating the image")
	}

	common.Respond(w, http.StatusOK, updated, message)
	return nil
}

func cleanup(files model.UploadedFiles) {
	if err := files.Cleanup(); err != nil {
		logger.Log.WithError(err).Warn("Failed to remove spooled upload")
	}
}

// refreshTokenFromRequest reads the refreshToken cookie, falling back to a
// JSON body. A missing or undecodable body yields no token.
func refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(RefreshTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	var req model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if !errors.Is(err, io.EOF) {
			logger.Log.WithError(err).Debug("Ignoring undecodable refresh request body")
		}
		return ""
	}
	return req.RefreshToken
}
