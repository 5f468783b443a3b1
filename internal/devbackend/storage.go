package devbackend

import (
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

const maxObjectSize = 10 << 20

// POST /v0/b/:bucket/o?name=users/{uid}/...
func (b *Backend) uploadObject(c *gin.Context) {
	name := c.Query("name")
	uid := c.GetString("userID")
	if !strings.HasPrefix(name, "users/"+uid+"/") {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{"code": http.StatusForbidden, "message": "Permission denied."}})
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxObjectSize+1))
	if err != nil {
		badRequest(c, "failed to read body")
		return
	}
	if len(data) > maxObjectSize {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "object too large"})
		return
	}
	ct := c.ContentType()
	if ct == "" || ct == "application/octet-stream" {
		ct = mimetype.Detect(data).String()
	}

	key := c.Param("bucket") + "/" + name
	b.store.mu.Lock()
	b.store.objects[key] = object{ContentType: ct, Data: data}
	b.store.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"name":        name,
		"bucket":      c.Param("bucket"),
		"contentType": ct,
		"size":        len(data),
	})
}

// GET /v0/b/:bucket/o/*object?alt=media
func (b *Backend) downloadObject(c *gin.Context) {
	key := c.Param("bucket") + "/" + strings.TrimPrefix(c.Param("object"), "/")
	b.store.mu.RLock()
	obj, ok := b.store.objects[key]
	b.store.mu.RUnlock()
	if !ok {
		notFound(c, "object")
		return
	}
	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}
