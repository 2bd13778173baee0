package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/learnforge/trainingportal/internal/entities"
)

// VerifyRequest is the POST body of /api/verify/check
type VerifyRequest struct {
	CertificateNumber string `json:"certificateNumber"`
}

// VerifyResponse reports a certificate lookup. Found is false for unknown
// numbers; the response is still 200 so the site can show a friendly result.
type VerifyResponse struct {
	Found       bool                `json:"found"`
	Valid       bool                `json:"valid"`
	Status      string              `json:"status,omitempty"`
	Message     string              `json:"message"`
	Certificate *CertificateSummary `json:"certificate,omitempty"`
}

// CertificateSummary is the public part of a certificate
type CertificateSummary struct {
	CertificateNumber string     `json:"certificateNumber"`
	StudentName       string     `json:"studentName"`
	CourseTitle       string     `json:"courseTitle"`
	IssueDate         time.Time  `json:"issueDate"`
	ExpiryDate        *time.Time `json:"expiryDate,omitempty"`
}

func (c *Controller) initVerifyRoutes() {
	c.Group.GET("/verify/check", c.VerifyCertificate)
	c.Group.POST("/verify/check", c.VerifyCertificate)
}

// VerifyCertificate handles GET /api/verify/check?number= and
// POST /api/verify/check
func (c *Controller) VerifyCertificate(ctx echo.Context) error {
	number := ctx.QueryParam("number")
	if ctx.Request().Method == http.MethodPost {
		var req VerifyRequest
		if err := bindBody(ctx, &req); err != nil {
			return c.HandleError(ctx, err, "Invalid verification request", http.StatusBadRequest)
		}
		number = req.CertificateNumber
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return c.HandleError(ctx, nil, "Certificate number is required", http.StatusBadRequest)
	}

	cert, ok, err := c.Repos.Certificates.ByNumber(number)
	if err != nil {
		return c.handleStoreError(ctx, err, "Certificate verification is temporarily unavailable")
	}
	if !ok {
		return ctx.JSON(http.StatusOK, VerifyResponse{
			Message: "No certificate was found with this number.",
		})
	}

	status := cert.EffectiveStatus(c.now())
	resp := VerifyResponse{
		Found:  true,
		Valid:  status == entities.CertificateValid,
		Status: status,
		Certificate: &CertificateSummary{
			CertificateNumber: cert.CertificateNumber,
			StudentName:       cert.StudentName,
			CourseTitle:       cert.CourseTitle,
			IssueDate:         cert.IssueDate,
			ExpiryDate:        cert.ExpiryDate,
		},
	}
	switch status {
	case entities.CertificateRevoked:
		resp.Message = "This certificate has been revoked."
	case entities.CertificateExpired:
		resp.Message = "This certificate has expired."
	default:
		resp.Message = "This certificate is valid."
	}
	return ctx.JSON(http.StatusOK, resp)
}
