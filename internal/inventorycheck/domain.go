package inventorycheck

import (
	"time"

	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/shared"
)

// Status is the reconciliation run state. FINISHED is one-way.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusFinished   Status = "FINISHED"
)

// Stable rule codes surfaced to API clients.
const (
	CodeCheckerRequired  = "INVENTORY_CHECKER_REQUIRED"
	CodeNameRequired     = "INVENTORY_NAME_REQUIRED"
	CodeOrgRequired      = "INVENTORY_ORG_REQUIRED"
	CodeInvalidCheckDate = "INVALID_CHECK_DATE"
	CodeDuplicateAsset   = "DUPLICATE_CHECK_ASSET"
	CodeCheckFinished    = "CHECK_ALREADY_FINISHED"
	CodeInvalidStatus    = "INVALID_ASSET_STATUS"
)

// Check groups one physical count run.
type Check struct {
	ID        int64
	OrgID     int64
	Name      string
	CheckerID int64
	CheckDate time.Time
	Status    Status
	Notes     string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCheckInput carries the creation payload.
type NewCheckInput struct {
	OrgID     int64
	Name      string
	CheckerID int64
	CheckDate time.Time
	Notes     string
}

// NewCheck builds an IN_PROGRESS check.
func NewCheck(input NewCheckInput, today time.Time) (Check, error) {
	if input.OrgID <= 0 {
		return Check{}, shared.NewRule(CodeOrgRequired, "organization is required")
	}
	if input.Name == "" {
		return Check{}, shared.NewRule(CodeNameRequired, "check name is required")
	}
	if input.CheckerID <= 0 {
		return Check{}, shared.NewRule(CodeCheckerRequired, "a checker is required")
	}
	if input.CheckDate.IsZero() {
		return Check{}, shared.NewRule(CodeInvalidCheckDate, "check date is required")
	}
	if input.CheckDate.After(today) {
		return Check{}, shared.NewRule(CodeInvalidCheckDate, "check date must not be in the future")
	}
	return Check{
		OrgID:     input.OrgID,
		Name:      input.Name,
		CheckerID: input.CheckerID,
		CheckDate: input.CheckDate,
		Status:    StatusInProgress,
		Notes:     input.Notes,
	}, nil
}

// Finish closes the run. There is no way back.
func (c *Check) Finish() error {
	if c.Status == StatusFinished {
		return shared.NewRule(CodeCheckFinished, "check is already finished")
	}
	c.Status = StatusFinished
	return nil
}

// Detail pairs one asset with its expected and observed state. The
// expected fields are snapshotted from the asset when the detail is
// added, so later asset mutations do not rewrite history.
type Detail struct {
	ID               int64
	CheckID          int64
	AssetID          int64
	ExpectedLocation string
	ExpectedStatus   asset.Status
	ActualLocation   *string
	ActualStatus     *asset.Status
	IsMatch          *bool
	Notes            string
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewDetail snapshots the asset's current state as the expectation.
func NewDetail(checkID int64, a asset.Asset) Detail {
	return Detail{
		CheckID:          checkID,
		AssetID:          a.ID,
		ExpectedLocation: a.Location,
		ExpectedStatus:   a.Status,
	}
}

// RecordResult stores the observed state and recomputes the match.
// Location and status must both agree for a match.
func (d *Detail) RecordResult(actualLocation string, actualStatus asset.Status, notes string) error {
	if !actualStatus.Valid() {
		return shared.NewRulef(CodeInvalidStatus, "unknown asset status %q", actualStatus)
	}
	d.ActualLocation = &actualLocation
	d.ActualStatus = &actualStatus
	match := d.ExpectedLocation == actualLocation && d.ExpectedStatus == actualStatus
	d.IsMatch = &match
	if notes != "" {
		d.Notes = notes
	}
	return nil
}
