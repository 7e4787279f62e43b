package announce

import (
	"fmt"
	"time"

	"github.com/yahsan2/enrollctl/pkg/utils"
	"github.com/yahsan2/enrollctl/pkg/validate"
)

// RecipientType names who an announcement is addressed to
type RecipientType string

const (
	RecipientRole           RecipientType = "ROLE"
	RecipientUser           RecipientType = "USER"
	RecipientPackageSession RecipientType = "PACKAGE_SESSION"
	RecipientTag            RecipientType = "TAG"
)

// ModeType is where the announcement appears in the platform
type ModeType string

const (
	ModeSystemAlert  ModeType = "SYSTEM_ALERT"
	ModeDashboardPin ModeType = "DASHBOARD_PIN"
	ModeDM           ModeType = "DM"
	ModeStream       ModeType = "STREAM"
	ModeResources    ModeType = "RESOURCES"
	ModeCommunity    ModeType = "COMMUNITY"
	ModeTasks        ModeType = "TASKS"
)

// MediumType is an outbound delivery channel
type MediumType string

const (
	MediumEmail    MediumType = "EMAIL"
	MediumWhatsApp MediumType = "WHATSAPP"
	MediumPush     MediumType = "PUSH_NOTIFICATION"
)

// ScheduleType selects when the announcement goes out
type ScheduleType string

const (
	ScheduleImmediate ScheduleType = "IMMEDIATE"
	ScheduleOneTime   ScheduleType = "ONE_TIME"
	ScheduleRecurring ScheduleType = "RECURRING"
)

// Recipient is one row of the recipient list
type Recipient struct {
	Type RecipientType `json:"recipient_type" yaml:"type" validate:"required,oneof=ROLE USER PACKAGE_SESSION TAG"`
	ID   string        `json:"recipient_id" yaml:"id" validate:"notblank"`
	Name string        `json:"recipient_name,omitempty" yaml:"name,omitempty"`
}

// Mode enables one in-platform surface
type Mode struct {
	Type     ModeType          `json:"mode_type" yaml:"type" validate:"required,oneof=SYSTEM_ALERT DASHBOARD_PIN DM STREAM RESOURCES COMMUNITY TASKS"`
	Settings map[string]string `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// Medium enables one outbound channel
type Medium struct {
	Type   MediumType        `json:"medium_type" yaml:"type" validate:"required,oneof=EMAIL WHATSAPP PUSH_NOTIFICATION"`
	Config map[string]string `json:"config,omitempty" yaml:"config,omitempty"`
}

// Scheduling describes when to deliver
type Scheduling struct {
	Type      ScheduleType `json:"schedule_type" yaml:"type" validate:"required,oneof=IMMEDIATE ONE_TIME RECURRING"`
	Cron      string       `json:"cron_expression,omitempty" yaml:"cron,omitempty" validate:"omitempty,cron5"`
	Timezone  string       `json:"timezone,omitempty" yaml:"timezone,omitempty" validate:"omitempty,timezone"`
	StartDate string       `json:"start_date,omitempty" yaml:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string       `json:"end_date,omitempty" yaml:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Announcement is the body of the announcement create endpoint
type Announcement struct {
	InstituteID string      `json:"institute_id" yaml:"-" validate:"notblank"`
	Title       string      `json:"title" yaml:"title" validate:"notblank,max=200"`
	Content     Content     `json:"content" yaml:"content"`
	CreatedBy   string      `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	Recipients  []Recipient `json:"recipients" yaml:"recipients" validate:"required,min=1,dive"`
	Modes       []Mode      `json:"modes" yaml:"modes" validate:"dive"`
	Mediums     []Medium    `json:"mediums" yaml:"mediums" validate:"dive"`
	Scheduling  Scheduling  `json:"scheduling" yaml:"scheduling"`
}

// Content is the announcement body
type Content struct {
	Type string `json:"type" yaml:"type" validate:"required,oneof=text html"`
	Body string `json:"content" yaml:"body" validate:"notblank"`
}

// Created is returned by the create endpoint
type Created struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Validate checks the announcement before it is sent
func (a *Announcement) Validate() error {
	if err := validate.Struct(a); err != nil {
		return err
	}

	errs := validate.Errors{}
	if len(a.Modes) == 0 && len(a.Mediums) == 0 {
		errs["modes"] = "at least one mode or medium is required"
	}

	s := a.Scheduling
	if s.Type != ScheduleImmediate && s.StartDate == "" {
		errs["scheduling.start_date"] = "this field is required"
	}
	if s.Type == ScheduleRecurring && s.Cron == "" {
		errs["scheduling.cron_expression"] = "this field is required"
	}
	if s.StartDate != "" && s.EndDate != "" && s.EndDate < s.StartDate {
		errs["scheduling.end_date"] = "must not be before start_date"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ResolveDates turns date expressions such as "@today+1w" in the
// scheduling dates into ISO dates relative to base.
func (a *Announcement) ResolveDates(base time.Time) error {
	for _, field := range []*string{&a.Scheduling.StartDate, &a.Scheduling.EndDate} {
		if *field == "" {
			continue
		}
		iso, err := utils.ResolveDate(*field, base)
		if err != nil {
			return fmt.Errorf("invalid schedule date: %w", err)
		}
		*field = iso
	}
	return nil
}

// TagRows returns the indexes of TAG recipients
func (a *Announcement) TagRows() []int {
	var rows []int
	for i, r := range a.Recipients {
		if r.Type == RecipientTag {
			rows = append(rows, i)
		}
	}
	return rows
}
