package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phantomx-ai/phantomx/internal/apperr"
	"github.com/phantomx-ai/phantomx/internal/audio"
)

const audioField = "audio"

// readClip pulls the "audio" multipart file out of the request, enforcing
// server.max_upload_bytes.
func (s *Server) readClip(c *gin.Context) (audio.Clip, error) {
	limit := s.cfg.Server.MaxUploadBytes
	if c.Request.ContentLength > limit {
		return audio.Clip{}, apperr.PayloadTooLarge("Audio file too large")
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile(audioField)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return audio.Clip{}, apperr.PayloadTooLarge("Audio file too large")
		}
		return audio.Clip{}, apperr.MissingField("No audio file provided")
	}
	if fh.Filename == "" {
		return audio.Clip{}, apperr.InvalidInput("Empty filename")
	}

	f, err := fh.Open()
	if err != nil {
		return audio.Clip{}, apperr.InvalidInput("Unreadable audio file").WithCause(err)
	}
	defer f.Close()

	clip, err := audio.Read(f, fh.Filename, fh.Header.Get("Content-Type"), limit)
	switch {
	case errors.Is(err, audio.ErrTooLarge):
		return audio.Clip{}, apperr.PayloadTooLarge("Audio file too large")
	case errors.Is(err, audio.ErrEmpty):
		return audio.Clip{}, apperr.InvalidInput("Empty audio file")
	case err != nil:
		return audio.Clip{}, apperr.InvalidInput("Unreadable audio file").WithCause(err)
	}
	return clip, nil
}
