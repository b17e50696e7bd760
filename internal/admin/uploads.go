package admin

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/campussathi/campussathi-go/internal/config"
	apperrors "github.com/campussathi/campussathi-go/internal/errors"
	"github.com/campussathi/campussathi-go/internal/timetable"
)

// Upload kinds.
const (
	KindFAQ                 = "faq"
	KindTimetable           = "timetable"
	KindStructuredTimetable = "structured_timetable"
)

var pdfMagic = []byte("%PDF-")

// Upload stores an uploaded knowledge file. PDFs take effect on the next
// index refresh; a structured timetable is validated and reloaded at once.
// Every stored file is mirrored when a Mirror is configured.
func (s *Service) Upload(ctx context.Context, kind, filename string, body []byte) (string, error) {
	msg, err := s.upload(ctx, kind, filename, body)
	return msg, s.record("upload_"+kindLabel(kind), err)
}

func kindLabel(kind string) string {
	switch kind {
	case KindFAQ, KindTimetable, KindStructuredTimetable:
		return kind
	default:
		return "unknown"
	}
}

func (s *Service) upload(ctx context.Context, kind, filename string, body []byte) (string, error) {
	w := wrapper("upload")
	if kind != KindFAQ && kind != KindTimetable && kind != KindStructuredTimetable {
		return "", w.Wrap(apperrors.ErrUnknownUploadKind, "Unknown kind")
	}
	if len(body) == 0 {
		return "", w.Wrap(apperrors.NewValidationError("file", "file is empty"), "Uploaded file is empty.")
	}

	switch kind {
	case KindFAQ, KindTimetable:
		path := s.faqPath
		if kind == KindTimetable {
			path = s.timetablePDFPath
		}
		if !bytes.HasPrefix(body, pdfMagic) {
			return "", w.Wrap(apperrors.NewValidationError("file", "not a PDF"), "Uploaded file is not a PDF.")
		}
		if err := writeFileAtomic(path, body); err != nil {
			return "", w.Wrapf(err, "Failed to save %s.", filepath.Base(path))
		}
		s.mirrorFile(ctx, path, body)
		s.logger.WithFields(map[string]any{"kind": kind, "bytes": len(body)}).InfoContext(ctx, "Knowledge file uploaded")
		return fmt.Sprintf("%s uploaded. Click Refresh Indexes to apply.", filepath.Base(path)), nil

	default:
		tt, err := timetable.Parse(body, filename)
		if err != nil {
			return "", w.Wrapf(err, "Invalid structured timetable: %v", err)
		}
		if err := s.timetable.Replace(tt); err != nil {
			return "", w.Wrap(err, "Failed to save structured timetable.")
		}
		if data, err := os.ReadFile(s.timetable.Path()); err == nil {
			s.mirrorFile(ctx, s.timetable.Path(), data)
		}
		s.logger.WithField("sections", len(tt)).InfoContext(ctx, "Structured timetable uploaded and reloaded")
		return "Structured timetable JSON uploaded and reloaded.", nil
	}
}

// mirrorFile pushes a stored file to object storage. Failures are logged;
// the local copy is authoritative.
func (s *Service) mirrorFile(ctx context.Context, path string, data []byte) {
	if s.mirror == nil {
		return
	}
	mctx, cancel := context.WithTimeout(ctx, config.MirrorTransfer)
	defer cancel()
	key, err := s.mirror.Push(mctx, filepath.Base(path), data)
	if err != nil {
		s.logger.WithError(err).WithField("file", filepath.Base(path)).WarnContext(ctx, "Failed to mirror upload")
		return
	}
	s.logger.WithField("key", key).DebugContext(ctx, "Upload mirrored")
}

// writeFileAtomic writes data next to path and renames it into place, so
// a concurrent index build never reads a half-written PDF.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
