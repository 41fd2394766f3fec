package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-api-accounts/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// avatarReq builds a multipart request with one file part under field.
func avatarReq(t *testing.T, field, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPut, "/api/v1/users/me/avatar", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestMe_ReturnsProfileWithAvatar(t *testing.T) {
	u := &domain.User{UserID: "u1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace", IsEmailVerified: true}
	accounts := &mockAccounts{}
	accounts.On("AvatarURL", mock.Anything, u).Return("https://cdn/default.png")
	h := NewUserHandler(accounts)
	rr := httptest.NewRecorder()
	h.Me(rr, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil), u, "a1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var p Profile
	decodeData(t, decodeEnvelope(t, rr), &p)
	assert.Equal(t, Profile{
		ID: "u1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		Avatar: "https://cdn/default.png", IsEmailVerified: true,
	}, p)
}

func TestMe_Unauthenticated(t *testing.T) {
	h := NewUserHandler(&mockAccounts{})
	rr := httptest.NewRecorder()
	h.Me(rr, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUploadAvatar_HappyPath(t *testing.T) {
	u := &domain.User{UserID: "u1", Email: "ada@example.com"}
	key := "avatars/u1/x.png"
	updated := &domain.User{UserID: "u1", Email: "ada@example.com", AvatarKey: &key}
	accounts := &mockAccounts{}
	accounts.On("UploadAvatar", mock.Anything, u, "me.png", "image/png").Return(updated, nil)
	accounts.On("AvatarURL", mock.Anything, updated).Return("https://bucket/avatars/u1/x.png?sig")
	h := NewUserHandler(accounts)
	rr := httptest.NewRecorder()
	h.UploadAvatar(rr, withUser(avatarReq(t, "avatar", "me.png", "image/png", []byte("\x89PNG")), u, "a1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var p Profile
	decodeData(t, decodeEnvelope(t, rr), &p)
	assert.Equal(t, "https://bucket/avatars/u1/x.png?sig", p.Avatar)
	accounts.AssertExpectations(t)
}

func TestUploadAvatar_MissingField(t *testing.T) {
	accounts := &mockAccounts{}
	h := NewUserHandler(accounts)
	rr := httptest.NewRecorder()
	h.UploadAvatar(rr, withUser(avatarReq(t, "picture", "me.png", "image/png", []byte("x")), &domain.User{UserID: "u1"}, "a1"))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var fields map[string]string
	decodeData(t, decodeEnvelope(t, rr), &fields)
	assert.Equal(t, "This field is required", fields["avatar"])
	accounts.AssertNotCalled(t, "UploadAvatar", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadAvatar_RejectedByService(t *testing.T) {
	u := &domain.User{UserID: "u1"}
	accounts := &mockAccounts{}
	accounts.On("UploadAvatar", mock.Anything, u, "notes.txt", "text/plain").
		Return(nil, &domain.FieldError{Field: "avatar", Message: "Upload a valid image", Err: domain.ErrBadRequest})
	h := NewUserHandler(accounts)
	rr := httptest.NewRecorder()
	h.UploadAvatar(rr, withUser(avatarReq(t, "avatar", "notes.txt", "text/plain", []byte("hi")), u, "a1"))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var fields map[string]string
	decodeData(t, decodeEnvelope(t, rr), &fields)
	assert.Equal(t, "Upload a valid image", fields["avatar"])
}

func TestHealthCheck(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler().Check(rr, httptest.NewRequest(http.MethodGet, "/api/v1/healthcheck", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "success", decodeEnvelope(t, rr).Status)
}
