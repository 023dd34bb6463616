package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-stylize/apperr"
	"go-stylize/upload"
)

// Upload stores a multipart photo under the public uploads directory. The
// file is deleted automatically after the store TTL.
func (a *App) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A file is required", "kind": "validation"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file", "kind": "validation"})
		return
	}
	defer f.Close()

	name, err := a.Uploads.Save(fh.Filename, fh.Size, f)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			a.fail(c, err)
			return
		}
		a.Log.Error().Err(err).Str("file", fh.Filename).Msg("upload store failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"file": name,
		"url":  "/uploads/" + name,
	})
}

// DeleteUpload removes an uploaded file by stored name, before its scheduled
// cleanup.
func (a *App) DeleteUpload(c *gin.Context) {
	name := c.Param("name")

	err := a.Uploads.Remove(name)
	if errors.Is(err, upload.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			a.fail(c, err)
			return
		}
		a.Log.Error().Err(err).Str("file", name).Msg("upload delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete file"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": StatusSuccessful})
}
