package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/logging"
	"github.com/dmitrijs2005/comicvault/internal/server/models"
	"github.com/dmitrijs2005/comicvault/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const maxUploadMemory = 32 << 20

type AccountAPI interface {
	Register(ctx context.Context, username, password, email, reference string) (*services.RegistrationResult, error)
	ConfirmVerification(ctx context.Context, token string) (string, error)
	Login(ctx context.Context, identifier, password string) (*services.LoginResult, error)
	Logout(ctx context.Context, session models.Session)
	Authenticate(ctx context.Context, token string) models.Session
}

type ShopAPI interface {
	ListCatalog(ctx context.Context) iter.Seq2[*models.CatalogItem, error]
	InitiatePurchase(ctx context.Context, session models.Session, itemID int64) (*models.PaymentInit, error)
	ConfirmPurchase(ctx context.Context, itemID int64, reference string) (*models.GrantedFile, error)
	SubmitItem(ctx context.Context, session models.Session, req services.SubmitRequest) (*models.CatalogItem, error)
	OpenAsset(ctx context.Context, grant *models.GrantedFile) (io.ReadCloser, error)
	GrantURL(ctx context.Context, grant *models.GrantedFile) (string, bool, error)
	OpenCover(ctx context.Context, itemID int64) (io.ReadCloser, string, error)
}

type Handler struct {
	accounts AccountAPI
	shop     ShopAPI
	logger   logging.Logger
}

func NewHandler(a AccountAPI, s ShopAPI, logger logging.Logger) *Handler {
	return &Handler{accounts: a, shop: s, logger: logger.With("module", "httpapi")}
}

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	Reference string `json:"reference"`
}

type registerResponse struct {
	Username            string `json:"username"`
	VerificationPending bool   `json:"verification_pending"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

type purchaseRequest struct {
	ItemID int64 `json:"item_id"`
}

type purchaseResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

func isJSON(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/json"
}

// decode fills dst from a JSON body, or from form values through fromForm.
func decode(r *http.Request, dst any, fromForm func(r *http.Request)) error {
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return common.ErrMissingFields
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return common.ErrMissingFields
	}
	fromForm(r)
	return nil
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	err := decode(r, &req, func(r *http.Request) {
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
		req.Email = r.FormValue("email")
		req.Reference = r.FormValue("reference")
		if req.Reference == "" {
			req.Reference = r.FormValue("ref")
		}
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), req.Username, req.Password, req.Email, req.Reference)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, registerResponse{Username: res.Username, VerificationPending: res.VerificationPending})
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	username, err := h.accounts.ConfirmVerification(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": username})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	err := decode(r, &req, func(r *http.Request) {
		req.Identifier = r.FormValue("identifier")
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Identifier == "" {
		req.Identifier = req.Username
	}

	res, err := h.accounts.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.Session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		Username:  res.Session.Username,
		ExpiresAt: res.Session.ExpiresAt,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.accounts.Logout(r.Context(), SessionFrom(r.Context()))
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	items := make([]*models.CatalogItem, 0)
	for item, err := range h.shop.ListCatalog(r.Context()) {
		if err != nil {
			h.fail(w, r, err)
			return
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) Cover(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rc, name, err := h.shop.OpenCover(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType(name))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn(r.Context(), "cover stream interrupted", "item", id, "error", err)
	}
}

func (h *Handler) SubmitItem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.fail(w, r, common.ErrMissingFields)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	price, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("price")), 10, 64)
	if err != nil {
		h.fail(w, r, common.ErrMissingFields)
		return
	}

	cover, err := formUpload(r, "cover")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer cover.close()
	file, err := formUpload(r, "file")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer file.close()

	ref := r.FormValue("ref")
	if ref == "" {
		ref = r.FormValue("reference")
	}

	item, err := h.shop.SubmitItem(r.Context(), SessionFrom(r.Context()), services.SubmitRequest{
		Title:     r.FormValue("title"),
		Price:     price,
		Reference: ref,
		Cover:     cover.Upload,
		File:      file.Upload,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) InitiatePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	err := decode(r, &req, func(r *http.Request) {
		req.ItemID, _ = strconv.ParseInt(r.FormValue("item_id"), 10, 64)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.shop.InitiatePurchase(r.Context(), SessionFrom(r.Context()), req.ItemID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, purchaseResponse{AuthorizationURL: res.AuthorizationURL, Reference: res.Reference})
}

// PurchaseCallback is where the gateway sends the payer back. The gateway
// appends both reference and trxref; either is accepted.
func (h *Handler) PurchaseCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := strconv.ParseInt(q.Get("item_id"), 10, 64)
	if err != nil {
		h.fail(w, r, common.ErrItemNotFound)
		return
	}
	ref := q.Get("reference")
	if ref == "" {
		ref = q.Get("trxref")
	}
	h.deliver(w, r, id, ref)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.deliver(w, r, id, r.URL.Query().Get("ref"))
}

// deliver confirms the purchase and hands over the file, by redirect when
// the asset store signs URLs and by streaming otherwise.
func (h *Handler) deliver(w http.ResponseWriter, r *http.Request, itemID int64, ref string) {
	grant, err := h.shop.ConfirmPurchase(r.Context(), itemID, ref)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if u, ok, err := h.shop.GrantURL(r.Context(), grant); err != nil {
		h.fail(w, r, err)
		return
	} else if ok {
		http.Redirect(w, r, u, http.StatusFound)
		return
	}

	rc, err := h.shop.OpenAsset(r.Context(), grant)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType(grant.FileName))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": grant.FileName}))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn(r.Context(), "download interrupted", "item", itemID, "error", err)
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, common.ErrItemNotFound
	}
	return id, nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

type formFile struct {
	services.Upload
	f multipart.File
}

func (f formFile) close() {
	if f.f != nil {
		_ = f.f.Close()
	}
}

// formUpload returns the named part; a missing part yields an empty Upload
// so the service reports the missing field.
func formUpload(r *http.Request, field string) (formFile, error) {
	f, hdr, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return formFile{}, nil
	}
	if err != nil {
		return formFile{}, common.ErrMissingFields
	}
	return formFile{Upload: services.Upload{Name: hdr.Filename, Body: f}, f: f}, nil
}
