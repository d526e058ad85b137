package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/zombor/receipt-digitizer/internal/extraction"
	"github.com/zombor/receipt-digitizer/internal/registry"
)

// maxUploadSize covers high-resolution phone photos
const maxUploadSize = int64(50 << 20)

const tooLargeMessage = "File is too large. Maximum size is 50MB. Please compress or resize your image."

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// jsonError writes an error response as {"error": message}
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidFields), errors.Is(err, ErrInvalidImage), errors.Is(err, registry.ErrInvalidNumber):
		return http.StatusBadRequest
	case errors.Is(err, ErrScanFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// serviceError logs err and writes the matching error response
func serviceError(w http.ResponseWriter, msg string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		slog.Error(msg, "error", err)
	} else {
		slog.Warn(msg, "error", err)
	}
	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "Internal server error"
	}
	jsonError(w, message, code)
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// readUpload reads the multipart file and rotation of a request
func readUpload(w http.ResponseWriter, r *http.Request) (Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, tooLargeMessage, http.StatusBadRequest)
		} else {
			jsonError(w, "Error parsing form", http.StatusBadRequest)
		}
		return Upload{}, false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		msg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			msg = "No file was selected. Please choose a file to upload."
		}
		jsonError(w, msg, http.StatusBadRequest)
		return Upload{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return Upload{}, false
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFor(header.Filename)
	}

	up := Upload{
		Filename:    header.Filename,
		Data:        data,
		ContentType: contentType,
	}
	if v := r.FormValue("rotate"); v != "" {
		deg, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, fmt.Sprintf("Invalid rotate value %q", v), http.StatusBadRequest)
			return Upload{}, false
		}
		up.Rotate = deg
	}
	return up, true
}

// fieldsFromForm reads field overrides from a parsed multipart form
func fieldsFromForm(r *http.Request) (Fields, error) {
	f := Fields{
		Date:               strings.TrimSpace(r.FormValue("date")),
		RegistrationNumber: strings.TrimSpace(r.FormValue("registration_number")),
		CompanyName:        strings.TrimSpace(r.FormValue("company_name")),
		Category:           strings.TrimSpace(r.FormValue("category")),
		Memo:               strings.TrimSpace(r.FormValue("memo")),
	}
	if v := strings.TrimSpace(r.FormValue("payment_method")); v != "" {
		f.PaymentMethod = extraction.ParsePaymentMethod(v)
	}
	if v := strings.TrimSpace(r.FormValue("total_amount")); v != "" {
		amount, err := strconv.Atoi(v)
		if err != nil {
			return Fields{}, fmt.Errorf("%w: total amount %q", ErrInvalidFields, v)
		}
		f.TotalAmount = amount
	}
	return f, nil
}

// handleScan reads a receipt image and returns the prefill without saving
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	up, ok := readUpload(w, r)
	if !ok {
		return
	}

	draft, err := s.service.Scan(r.Context(), up)
	if err != nil {
		serviceError(w, "Error scanning receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// handleListReceipts returns a list of all receipts
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		serviceError(w, "Error listing receipts", err)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleUploadReceipt handles receipt upload
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	up, ok := readUpload(w, r)
	if !ok {
		return
	}

	overrides, err := fieldsFromForm(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	receipt, err := s.service.ProcessReceipt(r.Context(), up, overrides)
	if err != nil {
		serviceError(w, "Error processing receipt", err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		serviceError(w, "Error getting receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleUpdateReceipt replaces the editable fields of a receipt
func (s *Server) handleUpdateReceipt(w http.ResponseWriter, r *http.Request) {
	var fields Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	receipt, err := s.service.UpdateReceipt(r.PathValue("id"), fields)
	if err != nil {
		serviceError(w, "Error updating receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleGetReceiptFile returns the file for a receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			slog.Warn("Error reading receipt file", "error", err)
			jsonError(w, "File not found", http.StatusNotFound)
			return
		}
		serviceError(w, "Error reading receipt file", err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		serviceError(w, "Error deleting receipt", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleExport downloads the receipt list as CSV or XLSX
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := s.service.Export(&buf, format); err != nil {
		serviceError(w, "Error exporting receipts", err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="receipts.%s"`, format))
	w.Write(buf.Bytes())
}

// handleGetIssuer resolves a registration number to a company name
func (s *Server) handleGetIssuer(w http.ResponseWriter, r *http.Request) {
	issuer, err := s.service.LookupIssuer(r.Context(), r.PathValue("number"))
	if err != nil {
		serviceError(w, "Error looking up issuer", err)
		return
	}
	writeJSON(w, http.StatusOK, issuer)
}
