package asset

import (
	"strings"
	"time"

	"github.com/assetline/assetline/internal/shared"
)

// Status enumerates asset lifecycle states.
type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusInUse       Status = "IN_USE"
	StatusMaintenance Status = "MAINTENANCE"
	StatusReserved    Status = "RESERVED"
	StatusLost        Status = "LOST"
	StatusRetired     Status = "RETIRED"
	StatusDisposed    Status = "DISPOSED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusInUse, StatusMaintenance, StatusReserved, StatusLost, StatusRetired, StatusDisposed:
		return true
	}
	return false
}

// Business-rule codes raised by asset mutators.
const (
	CodeNameRequired        = "ASSET_NAME_REQUIRED"
	CodeCodeRequired        = "ASSET_CODE_REQUIRED"
	CodeCategoryRequired    = "ASSET_CATEGORY_REQUIRED"
	CodeCreatorRequired     = "ASSET_CREATOR_REQUIRED"
	CodeOrgRequired         = "ASSET_ORG_REQUIRED"
	CodeNegativeAmount      = "NEGATIVE_AMOUNT"
	CodeInvalidPurchaseDate = "INVALID_PURCHASE_DATE"
	CodeInvalidWarrantyDate = "INVALID_WARRANTY_DATE"
	CodeInvalidStatus       = "INVALID_ASSET_STATUS"
	CodeAssetDisposed       = "ASSET_DISPOSED"
	CodeCustodyIncomplete   = "ASSET_CUSTODY_INCOMPLETE"
)

// Custody is the (department, user) pair currently holding an asset.
// Both sides are nullable and always written together with status.
type Custody struct {
	DepartmentID *int64
	UserID       *int64
}

// Equal reports whether two custody pairs point at the same holder.
func (c Custody) Equal(o Custody) bool {
	return int64PtrEq(c.DepartmentID, o.DepartmentID) && int64PtrEq(c.UserID, o.UserID)
}

func int64PtrEq(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Asset is the aggregate every workflow converges on. Its status and
// custody are written only through the named mutators below; the
// invariant user!=nil => IN_USE and empty custody => AVAILABLE holds
// after every successful call.
type Asset struct {
	ID           int64
	OrgID        int64
	CategoryID   int64
	CreatedBy    int64
	Name         string
	Code         string
	Status       Status
	Custody      Custody
	PurchasePrice  float64
	OriginalCost   float64
	CurrentValue   float64
	PurchaseDate   time.Time
	WarrantyExpiry *time.Time
	Model        string
	SerialNumber string
	Manufacturer string
	Condition    string
	Location     string
	Specs        string
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// NewAssetInput carries everything the validated constructor needs.
type NewAssetInput struct {
	OrgID          int64
	CategoryID     int64
	CreatedBy      int64
	Name           string
	Code           string
	PurchasePrice  float64
	OriginalCost   float64
	CurrentValue   float64
	PurchaseDate   time.Time
	WarrantyExpiry *time.Time
	Model          string
	SerialNumber   string
	Manufacturer   string
	Condition      string
	Location       string
	Specs          string
	Custody        Custody
}

// New validates input once and returns a fully formed asset. There is no
// partially valid intermediate object.
func New(input NewAssetInput, today time.Time) (Asset, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Asset{}, shared.NewRule(CodeNameRequired, "asset name is required")
	}
	if strings.TrimSpace(input.Code) == "" {
		return Asset{}, shared.NewRule(CodeCodeRequired, "asset code is required")
	}
	if input.CategoryID == 0 {
		return Asset{}, shared.NewRule(CodeCategoryRequired, "asset category is required")
	}
	if input.CreatedBy == 0 {
		return Asset{}, shared.NewRule(CodeCreatorRequired, "asset creator is required")
	}
	if input.OrgID == 0 {
		return Asset{}, shared.NewRule(CodeOrgRequired, "asset organization is required")
	}
	if err := validateFinancials(input.PurchasePrice, input.OriginalCost, input.CurrentValue, input.PurchaseDate, input.WarrantyExpiry, today); err != nil {
		return Asset{}, err
	}
	if input.Custody.UserID != nil && input.Custody.DepartmentID == nil {
		return Asset{}, shared.NewRule(CodeCustodyIncomplete, "an assigned user requires a department")
	}
	a := Asset{
		OrgID:          input.OrgID,
		CategoryID:     input.CategoryID,
		CreatedBy:      input.CreatedBy,
		Name:           strings.TrimSpace(input.Name),
		Code:           strings.TrimSpace(input.Code),
		PurchasePrice:  input.PurchasePrice,
		OriginalCost:   input.OriginalCost,
		CurrentValue:   input.CurrentValue,
		PurchaseDate:   input.PurchaseDate,
		WarrantyExpiry: input.WarrantyExpiry,
		Model:          input.Model,
		SerialNumber:   input.SerialNumber,
		Manufacturer:   input.Manufacturer,
		Condition:      input.Condition,
		Location:       input.Location,
		Specs:          input.Specs,
		Custody:        input.Custody,
	}
	a.Status = custodyStatus(a.Custody)
	return a, nil
}

func custodyStatus(c Custody) Status {
	if c.UserID != nil {
		return StatusInUse
	}
	return StatusAvailable
}

func validateFinancials(price, originalCost, currentValue float64, purchaseDate time.Time, warranty *time.Time, today time.Time) error {
	if price < 0 || originalCost < 0 || currentValue < 0 {
		return shared.NewRule(CodeNegativeAmount, "financial amounts must not be negative")
	}
	if purchaseDate.IsZero() {
		return shared.NewRule(CodeInvalidPurchaseDate, "purchase date is required")
	}
	if purchaseDate.After(today) {
		return shared.NewRule(CodeInvalidPurchaseDate, "purchase date must not be in the future")
	}
	if warranty != nil && !warranty.After(purchaseDate) {
		return shared.NewRule(CodeInvalidWarrantyDate, "warranty expiry must be after the purchase date")
	}
	return nil
}

func (a *Asset) guardNotDisposed() error {
	if a.Status == StatusDisposed {
		return shared.NewRule(CodeAssetDisposed, "a disposed asset can no longer be modified")
	}
	return nil
}

// UpdateBasicInfo renames the asset and moves it between categories.
func (a *Asset) UpdateBasicInfo(name string, categoryID int64) error {
	if err := a.guardNotDisposed(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return shared.NewRule(CodeNameRequired, "asset name is required")
	}
	if categoryID == 0 {
		return shared.NewRule(CodeCategoryRequired, "asset category is required")
	}
	a.Name = strings.TrimSpace(name)
	a.CategoryID = categoryID
	return nil
}

// UpdateFinancials revalidates and replaces the financial fields.
func (a *Asset) UpdateFinancials(price, originalCost, currentValue float64, purchaseDate time.Time, warranty *time.Time, today time.Time) error {
	if err := a.guardNotDisposed(); err != nil {
		return err
	}
	if err := validateFinancials(price, originalCost, currentValue, purchaseDate, warranty, today); err != nil {
		return err
	}
	a.PurchasePrice = price
	a.OriginalCost = originalCost
	a.CurrentValue = currentValue
	a.PurchaseDate = purchaseDate
	a.WarrantyExpiry = warranty
	return nil
}

// UpdatePhysicalCondition replaces the free-form physical fields.
func (a *Asset) UpdatePhysicalCondition(model, serial, manufacturer, condition, location, specs string) error {
	if err := a.guardNotDisposed(); err != nil {
		return err
	}
	a.Model = model
	a.SerialNumber = serial
	a.Manufacturer = manufacturer
	a.Condition = condition
	a.Location = location
	a.Specs = specs
	return nil
}

// ChangeStatus sets the status without transition checks; legality is the
// calling workflow's responsibility. Only unknown enum values are rejected.
func (a *Asset) ChangeStatus(next Status) error {
	if !next.Valid() {
		return shared.NewRulef(CodeInvalidStatus, "unknown asset status %q", next)
	}
	a.Status = next
	return nil
}

// AssignToUser hands the asset to a user within a department and forces
// IN_USE. Custody and status never move independently.
func (a *Asset) AssignToUser(userID, departmentID int64) error {
	if err := a.guardNotDisposed(); err != nil {
		return err
	}
	if userID == 0 || departmentID == 0 {
		return shared.NewRule(CodeCustodyIncomplete, "user and department are both required for assignment")
	}
	a.Custody = Custody{DepartmentID: &departmentID, UserID: &userID}
	a.Status = StatusInUse
	return nil
}

// Unassign clears custody and forces AVAILABLE.
func (a *Asset) Unassign() error {
	if err := a.guardNotDisposed(); err != nil {
		return err
	}
	a.Custody = Custody{}
	a.Status = StatusAvailable
	return nil
}

// UpdateLocation moves custody, used by transfer completion. A present
// user forces IN_USE, a department alone leaves the asset AVAILABLE at
// that department.
func (a *Asset) UpdateLocation(departmentID, userID *int64) error {
	if err := a.guardNotDisposed(); err != nil {
		return err
	}
	if userID != nil && departmentID == nil {
		return shared.NewRule(CodeCustodyIncomplete, "an assigned user requires a department")
	}
	a.Custody = Custody{DepartmentID: departmentID, UserID: userID}
	a.Status = custodyStatus(a.Custody)
	return nil
}

// MarkDisposed is the soft delete: the asset stays referenced by history
// but its status is forced to the terminal DISPOSED state.
func (a *Asset) MarkDisposed(now time.Time) {
	a.Status = StatusDisposed
	a.Custody = Custody{}
	at := now
	a.DeletedAt = &at
}

// BookValue is the current carrying value used by disposal gain/loss.
func (a *Asset) BookValue() float64 {
	return a.CurrentValue
}
