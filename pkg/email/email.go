// Package email sends transactional mail through the Resend HTTP API.
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const resendEndpoint = "https://api.resend.com/emails"

type Service struct {
	apiKey    string
	from      string
	templates *template.Template
	client    *http.Client
	log       *logrus.Logger
}

type payload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Html    string `json:"html"`
}

func NewService(apiKey, from string, log *logrus.Logger) (*Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %w", err)
	}

	return &Service{
		apiKey:    apiKey,
		from:      from,
		templates: templates,
		client:    &http.Client{Timeout: 15 * time.Second},
		log:       log,
	}, nil
}

func (s *Service) send(to, subject, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}

	jsonData, err := json.Marshal(payload{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    body.String(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, resendEndpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resend API error: %s", string(respBody))
	}

	if s.log != nil {
		s.log.WithField("to", to).WithField("template", templateName).Debug("email sent")
	}
	return nil
}

type welcomeData struct {
	Name string
	Role string
}

type approvalData struct {
	Name          string
	PropertyTitle string
}

type rejectionData struct {
	Name          string
	PropertyTitle string
	Reason        string
}

type leadData struct {
	PropertyTitle string
	LeadName      string
	LeadEmail     string
	LeadPhone     string
	LeadMessage   string
}

type promotionData struct {
	Name          string
	PropertyTitle string
	Tier          string
	Amount        string
	ExpiresAt     time.Time
}

func (s *Service) SendWelcome(to, name, role string) error {
	return s.send(to, "Welcome to HomeTrove!", "welcome.html", welcomeData{Name: name, Role: role})
}

func (s *Service) SendListingApproved(to, name, propertyTitle string) error {
	return s.send(to, "Your listing is live", "listing_approved.html",
		approvalData{Name: name, PropertyTitle: propertyTitle})
}

func (s *Service) SendListingRejected(to, name, propertyTitle, reason string) error {
	return s.send(to, "Your listing needs changes", "listing_rejected.html",
		rejectionData{Name: name, PropertyTitle: propertyTitle, Reason: reason})
}

func (s *Service) SendLeadNotification(to, propertyTitle, leadName, leadEmail, leadPhone, leadMessage string) error {
	return s.send(to, "New enquiry for your property", "lead_notification.html", leadData{
		PropertyTitle: propertyTitle,
		LeadName:      leadName,
		LeadEmail:     leadEmail,
		LeadPhone:     leadPhone,
		LeadMessage:   leadMessage,
	})
}

type digestData struct {
	Name        string
	TotalViews  int64
	UniqueViews int64
	LeadCount   int64
	Since       time.Time
}

func (s *Service) SendWeeklyDigest(to, name string, totalViews, uniqueViews, leadCount int64, since time.Time) error {
	return s.send(to, "Your week on HomeTrove", "weekly_digest.html", digestData{
		Name:        name,
		TotalViews:  totalViews,
		UniqueViews: uniqueViews,
		LeadCount:   leadCount,
		Since:       since,
	})
}

func (s *Service) SendPromotionReceipt(to, name, propertyTitle, tier, amount string, expiresAt time.Time) error {
	return s.send(to, "Your listing promotion is active", "promotion_receipt.html", promotionData{
		Name:          name,
		PropertyTitle: propertyTitle,
		Tier:          tier,
		Amount:        amount,
		ExpiresAt:     expiresAt,
	})
}
