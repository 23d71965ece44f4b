package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"surveillance_portal_backend/internal/adapters/storage"
	"surveillance_portal_backend/internal/leads/transport"
	"surveillance_portal_backend/platform/httpkit"
)

const evidenceFolder = "evidence"

// EvidenceHandler uploads evidence files for a lead and records the
// add_evidence action on its audit trail.
type EvidenceHandler struct {
	inner   *Handler
	storage storage.StorageService
	bucket  string
}

// NewEvidence creates the evidence upload handler.
func NewEvidence(inner *Handler, storageSvc storage.StorageService, bucket string) *EvidenceHandler {
	return &EvidenceHandler{inner: inner, storage: storageSvc, bucket: bucket}
}

// Upload handles POST /leads/:id/evidence (multipart form). The "version"
// field carries the lead version the client last saw; the uploaded objects
// are attached via the add_evidence lifecycle action.
func (h *EvidenceHandler) Upload(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	version, err := strconv.Atoi(c.PostForm("version"))
	if err != nil || version < 1 {
		httpkit.Error(c, http.StatusBadRequest, "version form field is required", nil)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid multipart form", nil)
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		httpkit.Error(c, http.StatusBadRequest, "at least one file is required", nil)
		return
	}

	keys := make([]string, 0, len(files))
	metadata := map[string]any{}
	for _, header := range files {
		contentType := header.Header.Get("Content-Type")
		if err := h.storage.ValidateContentType(contentType); err != nil {
			httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		if err := h.storage.ValidateFileSize(header.Size); err != nil {
			httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}

		var photoMeta storage.PhotoMetadata
		if contentType == "image/jpeg" {
			if probe, err := header.Open(); err == nil {
				photoMeta = storage.ExtractPhotoMetadata(probe)
				probe.Close()
			}
		}

		file, err := header.Open()
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "could not read uploaded file", nil)
			return
		}
		key, err := h.storage.UploadFile(c.Request.Context(), h.bucket, evidenceFolder, header.Filename, contentType, file, header.Size)
		file.Close()
		if err != nil {
			httpkit.Error(c, http.StatusInternalServerError, "upload failed", nil)
			return
		}

		keys = append(keys, key)
		if photoMeta.CapturedAt != nil || photoMeta.Latitude != nil {
			metadata[key] = photoMeta
		}
	}

	lead, err := h.inner.svc.ApplyAction(c.Request.Context(), leadID, actor, transport.ActionRequest{
		Action:           "add_evidence",
		Version:          version,
		EvidenceKeys:     keys,
		EvidenceMetadata: metadata,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, gin.H{
		"lead":         transport.ToLeadResponse(lead, time.Now()),
		"evidenceKeys": keys,
	})
}

// DownloadURL handles GET /leads/:id/evidence/url?key=... and returns a
// short-lived presigned link.
func (h *EvidenceHandler) DownloadURL(c *gin.Context) {
	if _, ok := parseLeadID(c); !ok {
		return
	}

	key := c.Query("key")
	if key == "" {
		httpkit.Error(c, http.StatusBadRequest, "key query parameter is required", nil)
		return
	}

	presigned, err := h.storage.GenerateDownloadURL(c.Request.Context(), h.bucket, key)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "could not generate download URL", nil)
		return
	}
	httpkit.OK(c, presigned)
}
