package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"gocloud.dev/blob"

	"caseintake/internal/storage"
)

// FileSource reads stored uploads back.
type FileSource interface {
	Download(ctx context.Context, key string) (*blob.Reader, error)
}

// serveFiles streams stored objects for buckets that have no public host of
// their own. The URLs handed out for uploads point here.
func serveFiles(src FileSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		if key == "" || strings.Contains(key, "..") {
			c.JSON(http.StatusNotFound, gin.H{"message": "File not found"})
			return
		}
		r, err := src.Download(c.Request.Context(), key)
		if errors.Is(err, storage.ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "File not found", "details": key})
			return
		}
		if presentError(c, err) {
			return
		}
		defer r.Close()
		c.DataFromReader(http.StatusOK, r.Size(), r.ContentType(), r, nil)
	}
}
