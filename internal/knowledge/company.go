// Package knowledge holds the company knowledge base: the persisted or
// bundled CompanyKnowledge record and the keyword index built from it.
package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKnowledge marks a record that decoded but failed validation.
var ErrInvalidKnowledge = errors.New("knowledge: invalid record")

// Company is the structured company knowledge record.
type Company struct {
	Company        CompanyInfo  `json:"company"`
	FiscalInfo     FiscalInfo   `json:"fiscalInfo"`
	Contact        Contact      `json:"contact"`
	Services       []Service    `json:"services"`
	Values         []Value      `json:"values"`
	Technologies   Technologies `json:"technologies"`
	Portfolio      []Project    `json:"portfolio"`
	FAQs           []FAQ        `json:"faqs"`
	Certifications []string     `json:"certifications"`
	Team           Team         `json:"team"`
}

type CompanyInfo struct {
	Name         string `json:"name"`
	LegalName    string `json:"legalName"`
	Tagline      string `json:"tagline"`
	Description  string `json:"description"`
	Founded      string `json:"founded"`
	Website      string `json:"website"`
	Industry     string `json:"industry"`
	TargetMarket string `json:"targetMarket"`
}

type FiscalInfo struct {
	RFC       string `json:"rfc"`
	Regime    string `json:"regime"`
	Invoicing string `json:"invoicing"`
	TaxStatus string `json:"taxStatus"`
}

type Contact struct {
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Address     string      `json:"address"`
	SocialMedia SocialMedia `json:"socialMedia"`
}

type SocialMedia struct {
	LinkedIn string `json:"linkedin"`
	Twitter  string `json:"twitter"`
	Facebook string `json:"facebook"`
}

type Service struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Features     []string `json:"features"`
	Technologies []string `json:"technologies"`
	Pricing      string   `json:"pricing"`
}

type Value struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Technologies struct {
	Frontend  []string `json:"frontend"`
	Backend   []string `json:"backend"`
	Databases []string `json:"databases"`
	Cloud     []string `json:"cloud"`
	DevOps    []string `json:"devops"`
	Security  []string `json:"security"`
}

type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Industry     string   `json:"industry"`
	Technologies []string `json:"technologies"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Team struct {
	Size      string   `json:"size"`
	Expertise []string `json:"expertise"`
}

// Parse decodes and validates a raw record. Unknown fields are ignored;
// type mismatches and missing identity fields are errors.
func Parse(raw []byte) (Company, error) {
	var c Company
	if err := json.Unmarshal(raw, &c); err != nil {
		return Company{}, fmt.Errorf("knowledge: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Company{}, err
	}
	return c, nil
}

// Validate checks the fields the index cannot do without.
func (c Company) Validate() error {
	if strings.TrimSpace(c.Company.Name) == "" {
		return fmt.Errorf("%w: company name required", ErrInvalidKnowledge)
	}
	for i, svc := range c.Services {
		if strings.TrimSpace(svc.ID) == "" || strings.TrimSpace(svc.Name) == "" {
			return fmt.Errorf("%w: service %d needs id and name", ErrInvalidKnowledge, i)
		}
	}
	return nil
}
