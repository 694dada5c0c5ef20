package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultNow is the scenario start time when none is given.
var DefaultNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// Scenario defines one end-to-end recovery run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the RFC 3339 start time of the manual clock.
	Now string `yaml:"now,omitempty"`

	// Rules are installed before the first pass.
	Rules []RuleSpec `yaml:"rules,omitempty"`

	// RulesFile is a CUE rule file or directory, relative to the scenario.
	RulesFile string `yaml:"rules_file,omitempty"`

	Seed Seed `yaml:"seed"`

	// Passes are the sweeps to run in order. An empty list runs one sweep.
	Passes []Pass `yaml:"passes,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// RuleSpec is an inline rule. Conditions and actions use the same flat
// key-value shape that rules are stored with.
type RuleSpec struct {
	ID           string           `yaml:"id"`
	Name         string           `yaml:"name,omitempty"`
	Active       *bool            `yaml:"active,omitempty"` // default true
	Priority     int              `yaml:"priority,omitempty"`
	SalesChannel string           `yaml:"sales_channel,omitempty"`
	CreatedAgo   string           `yaml:"created_ago,omitempty"`
	Conditions   []map[string]any `yaml:"conditions,omitempty"`
	Actions      []map[string]any `yaml:"actions,omitempty"`
}

// Seed is the data present before the first pass.
type Seed struct {
	SalesChannels []SalesChannelSeed `yaml:"sales_channels,omitempty"`
	Customers     []CustomerSeed     `yaml:"customers,omitempty"`
	Carts         []CartSeed         `yaml:"carts,omitempty"`
	Promotions    []PromotionSeed    `yaml:"promotions,omitempty"`
	MailTemplates []MailTemplateSeed `yaml:"mail_templates,omitempty"`
}

type SalesChannelSeed struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
}

type CustomerSeed struct {
	ID           string         `yaml:"id"`
	Email        string         `yaml:"email"`
	FirstName    string         `yaml:"first_name,omitempty"`
	LastName     string         `yaml:"last_name,omitempty"`
	Tags         []string       `yaml:"tags,omitempty"`
	CustomFields map[string]any `yaml:"custom_fields,omitempty"`
}

// CartSeed describes a cart relative to the scenario start: Age is how long
// ago it was created, LastAutomationAgo when it was last automated.
type CartSeed struct {
	ID                string         `yaml:"id"`
	Customer          string         `yaml:"customer"`
	Channel           string         `yaml:"channel"`
	Total             string         `yaml:"total"`
	Currency          string         `yaml:"currency,omitempty"` // default EUR
	Age               string         `yaml:"age"`
	AutomationCount   int            `yaml:"automation_count,omitempty"`
	LastAutomationAgo string         `yaml:"last_automation_ago,omitempty"`
	LineItems         []LineItemSeed `yaml:"line_items,omitempty"`
}

type LineItemSeed struct {
	Label     string `yaml:"label"`
	Product   string `yaml:"product,omitempty"`
	Quantity  int    `yaml:"quantity"`
	UnitPrice string `yaml:"unit_price"`
}

type PromotionSeed struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name,omitempty"`
	IndividualCodes bool   `yaml:"individual_codes"`
}

type MailTemplateSeed struct {
	ID           string `yaml:"id"`
	SenderName   string `yaml:"sender_name,omitempty"`
	Subject      string `yaml:"subject"`
	ContentPlain string `yaml:"content_plain,omitempty"`
	ContentHTML  string `yaml:"content_html,omitempty"`
}

// Pass is one sweep. Advance moves the clock forward before the sweep.
type Pass struct {
	Advance string `yaml:"advance,omitempty"`
}

// Assertion validates the final database state. Which fields apply
// depends on Type.
type Assertion struct {
	Type string `yaml:"type"`

	Rule      string   `yaml:"rule,omitempty"`
	Cart      string   `yaml:"cart,omitempty"`
	Customer  string   `yaml:"customer,omitempty"`
	Status    string   `yaml:"status,omitempty"`
	Key       string   `yaml:"key,omitempty"`
	Template  string   `yaml:"template,omitempty"`
	Promotion string   `yaml:"promotion,omitempty"`
	Field     string   `yaml:"field,omitempty"`
	Value     any      `yaml:"value,omitempty"`
	Subject   string   `yaml:"subject,omitempty"`
	Code      string   `yaml:"code,omitempty"`
	Tags      []string `yaml:"tags,omitempty"`
	Count     *int     `yaml:"count,omitempty"`
	Stamped   *bool    `yaml:"stamped,omitempty"`
}

// Assertion type constants.
const (
	AssertLogCount      = "log_count"
	AssertActionResult  = "action_result"
	AssertCartState     = "cart_state"
	AssertOutboxCount   = "outbox_count"
	AssertOutboxSubject = "outbox_subject"
	AssertCustomerTags  = "customer_tags"
	AssertCustomField   = "custom_field"
	AssertVoucherCount  = "voucher_count"
	AssertVoucherCode   = "voucher_code"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected and rules_file is resolved relative to the scenario.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.RulesFile != "" && !filepath.IsAbs(scenario.RulesFile) {
		scenario.RulesFile = filepath.Join(filepath.Dir(path), scenario.RulesFile)
	}
	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// StartTime returns the parsed start time, or DefaultNow.
func (s *Scenario) StartTime() (time.Time, error) {
	if s.Now == "" {
		return DefaultNow, nil
	}
	t, err := time.Parse(time.RFC3339, s.Now)
	if err != nil {
		return time.Time{}, fmt.Errorf("now: %w", err)
	}
	return t.UTC(), nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Rules) == 0 && s.RulesFile == "" {
		return fmt.Errorf("rules or rules_file is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if _, err := s.StartTime(); err != nil {
		return err
	}

	for i, r := range s.Rules {
		if r.ID == "" {
			return fmt.Errorf("rules[%d]: id is required", i)
		}
		if err := checkDuration(fmt.Sprintf("rules[%d].created_ago", i), r.CreatedAgo); err != nil {
			return err
		}
	}
	for i, c := range s.Seed.Carts {
		if c.ID == "" || c.Customer == "" || c.Channel == "" {
			return fmt.Errorf("seed.carts[%d]: id, customer and channel are required", i)
		}
		if c.Age == "" {
			return fmt.Errorf("seed.carts[%d]: age is required", i)
		}
		if err := checkDuration(fmt.Sprintf("seed.carts[%d].age", i), c.Age); err != nil {
			return err
		}
		if err := checkDuration(fmt.Sprintf("seed.carts[%d].last_automation_ago", i), c.LastAutomationAgo); err != nil {
			return err
		}
	}
	for i, p := range s.Passes {
		if err := checkDuration(fmt.Sprintf("passes[%d].advance", i), p.Advance); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func checkDuration(field, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return fmt.Errorf("%s: must not be negative", field)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	need := func(ok bool, what string) error {
		if !ok {
			return fmt.Errorf("assertions[%d]: %s is required for %s", index, what, a.Type)
		}
		return nil
	}

	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertLogCount, AssertOutboxCount:
		return need(a.Count != nil, "count")
	case AssertActionResult:
		if err := need(a.Cart != "" && a.Key != "", "cart and key"); err != nil {
			return err
		}
		return need(a.Status != "", "status")
	case AssertCartState:
		return need(a.Cart != "", "cart")
	case AssertOutboxSubject:
		return need(a.Template != "" && a.Subject != "", "template and subject")
	case AssertCustomerTags:
		return need(a.Customer != "", "customer")
	case AssertCustomField:
		return need(a.Customer != "" && a.Field != "", "customer and field")
	case AssertVoucherCount:
		return need(a.Promotion != "" && a.Count != nil, "promotion and count")
	case AssertVoucherCode:
		return need(a.Promotion != "" && a.Code != "", "promotion and code")
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
}
