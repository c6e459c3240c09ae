package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/jrsteele09/payslip-server/internal/errors"
	"github.com/jrsteele09/payslip-server/payslips"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	maxUploadBytes   = 25 << 20
	multipartMemory  = 8 << 20
	payslipFileField = "file"
)

// SendPayslipHandler emails an uploaded payslip as the signed-in user. The
// attempt is logged whether or not the email goes out.
func (s *Server) SendPayslipHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := s.identityOrUnauthorized(w, r)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			s.writeError(w, r, apperrors.Mark(err, apperrors.ErrInvalidRequest))
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile(payslipFileField)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgNoFile})
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			s.writeError(w, r, apperrors.Mark(err, apperrors.ErrInvalidRequest))
			return
		}
		if len(content) == 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgNoFile})
			return
		}

		batchSize, err := parseOptionalInt(r.FormValue("batchSize"))
		if err != nil {
			s.writeError(w, r, errors.Wrap(apperrors.ErrInvalidRequest, "batchSize"))
			return
		}

		result, err := s.payslips.Send(r.Context(), payslips.Request{
			AccessToken:  identity.AccessToken,
			SenderName:   r.FormValue("senderName"),
			SenderEmail:  r.FormValue("senderEmail"),
			To:           r.FormValue("to"),
			Subject:      r.FormValue("subject"),
			HTML:         r.FormValue("html"),
			Text:         r.FormValue("text"),
			WorkerNum:    r.FormValue("workerNum"),
			WorkerName:   r.FormValue("workerName"),
			BatchID:      r.FormValue("batchId"),
			BatchItemNum: r.FormValue("batchItemNum"),
			BatchSize:    batchSize,
			Filename:     header.Filename,
			ContentType:  header.Header.Get("Content-Type"),
			File:         content,
		})
		switch {
		case apperrors.Is(err, apperrors.ErrMailSend), err == nil && !result.Sent:
			writeJSON(w, http.StatusInternalServerError, successResponse{Success: false, Message: "Failed to send email. Logged attempt."})
			return
		case err != nil:
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Email sent and logged successfully."})
	}
}

// PayslipLogsHandler lists recent send attempts, newest first.
func (s *Server) PayslipLogsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidLimit, Message: msgInvalidLimitHint})
				return
			}
			limit = n
		}

		logs, err := s.payslips.Logs(r.Context(), limit)
		if err != nil {
			log.Error().Err(err).Int("limit", limit).Msg("failed to fetch email logs")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgLogsFailed})
			return
		}
		writeJSON(w, http.StatusOK, logs)
	}
}

func parseOptionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
