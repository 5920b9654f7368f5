package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/anjiri1684/liquidity/models"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

//go:embed templates/rental_certificate.html
var certificateTemplates embed.FS

var rentalCertificateTmpl = template.Must(template.ParseFS(certificateTemplates, "templates/rental_certificate.html"))

const (
	certificateFolder  = "liquidity_rental_certificates"
	certificateTimeout = 60 * time.Second
)

// CertificateService renders a PDF certificate for a rental and stores it on
// Cloudinary. Rendering and upload are swappable for tests.
type CertificateService struct {
	rentals *RentalService
	log     *zap.Logger
	render  func(ctx context.Context, html string) ([]byte, error)
	upload  func(ctx context.Context, pdf []byte, publicID string) (string, error)
}

func NewCertificateService(cloudinaryURL string, rentals *RentalService, log *zap.Logger) *CertificateService {
	s := &CertificateService{rentals: rentals, log: log, render: generatePDFFromHTML}
	s.upload = func(ctx context.Context, pdf []byte, publicID string) (string, error) {
		return uploadToCloudinary(ctx, cloudinaryURL, pdf, publicID)
	}
	return s
}

// Issue renders, uploads and records the certificate for rental.
func (s *CertificateService) Issue(ctx context.Context, holder models.User, rental models.Rental) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, certificateTimeout)
	defer cancel()

	html, err := renderRentalCertificate(holder, rental)
	if err != nil {
		return "", fmt.Errorf("render certificate: %w", err)
	}
	pdf, err := s.render(ctx, html)
	if err != nil {
		return "", fmt.Errorf("print certificate: %w", err)
	}
	url, err := s.upload(ctx, pdf, fmt.Sprintf("%s_%s", holder.ID, rental.ID))
	if err != nil {
		return "", fmt.Errorf("upload certificate: %w", err)
	}
	if err := s.rentals.SetCertificateURL(ctx, rental.ID, url); err != nil {
		return "", err
	}

	s.log.Info("rental certificate issued",
		zap.String("user_id", holder.ID.String()),
		zap.String("rental_id", rental.ID.String()))
	return url, nil
}

// IssueAsync is the top-up listener. Failures are logged only; the rental stands without a certificate.
func (s *CertificateService) IssueAsync(ev TopUpEvent) {
	go func() {
		if _, err := s.Issue(context.Background(), ev.User, ev.Rental); err != nil {
			s.log.Warn("rental certificate not issued",
				zap.String("rental_id", ev.Rental.ID.String()),
				zap.Error(err))
		}
	}()
}

func renderRentalCertificate(holder models.User, rental models.Rental) (string, error) {
	data := struct {
		HolderName     string
		Currency       string
		Amount         string
		ExpectedReturn string
		DurationDays   int
		StartDate      string
		MaturityDate   string
		Reference      string
	}{
		HolderName:     holder.FullName,
		Currency:       rental.Currency,
		Amount:         rental.Amount.StringFixed(2),
		ExpectedReturn: rental.ExpectedReturn.StringFixed(2),
		DurationDays:   rental.DurationDays,
		StartDate:      rental.CreatedAt.Format("January 2, 2006"),
		MaturityDate:   rental.MaturesAt.Format("January 2, 2006"),
		Reference:      rental.ID.String(),
	}

	var rendered bytes.Buffer
	if err := rentalCertificateTmpl.Execute(&rendered, data); err != nil {
		return "", err
	}
	return rendered.String(), nil
}

func generatePDFFromHTML(ctx context.Context, htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).WithLandscape(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}

func uploadToCloudinary(ctx context.Context, cloudinaryURL string, fileBytes []byte, publicID string) (string, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return "", err
	}

	uploadResult, err := cld.Upload.Upload(ctx, bytes.NewReader(fileBytes), uploader.UploadParams{
		PublicID:     publicID,
		Folder:       certificateFolder,
		ResourceType: "raw",
	})
	if err != nil {
		return "", err
	}
	return uploadResult.SecureURL, nil
}
