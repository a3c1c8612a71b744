package models

// KPM field tree paths used by the sync conditions and the mapper.
const (
	kpmRoot = "DevelopmentProblem"

	KpmPathProblemNumber      = kpmRoot + "/ProblemNumber"
	KpmPathProblemStatus      = kpmRoot + "/ProblemStatus"
	KpmPathSupplierStatus     = kpmRoot + "/SupplierStatus"
	KpmPathEngineeringStatus  = kpmRoot + "/EngineeringStatus"
	KpmPathShortText          = kpmRoot + "/ShortText"
	KpmPathDescription        = kpmRoot + "/Description"
	KpmPathRating             = kpmRoot + "/Rating"
	KpmPathExclaimer          = kpmRoot + "/Exclaimer"
	KpmPathRepeatable         = kpmRoot + "/Repeatable"
	KpmPathLastChange         = kpmRoot + "/LastChangeTimestamp"
	KpmPathExternalProblemNo  = kpmRoot + "/ExternalProblemNumber"
	KpmPathSupplierUserID     = kpmRoot + "/Supplier/Contractor/PersonalContractor/UserId"
	KpmPathSupplierAddress    = kpmRoot + "/Supplier/Contractor/Address"
	KpmPathForemostTestPart   = kpmRoot + "/ForemostTestPart"
	KpmPathSoftware           = kpmRoot + "/ForemostTestPart/Software"
	KpmPathHardware           = kpmRoot + "/ForemostTestPart/Hardware"
	KpmPathVerbundRelease     = kpmRoot + "/VerbundRelease"
	KpmPathOrganisationalUnit = "OrganisationalUnit"
	KpmPathPlant              = "Plant"
)

// KpmProblem is the decoded KPM development problem field tree.
type KpmProblem struct {
	*Ticket
}

func NewKpmProblem(raw map[string]any) *KpmProblem {
	return &KpmProblem{Ticket: NewTicket(raw, FieldMap{}, "")}
}

// ProblemNumber is the KPM record identity.
func (p *KpmProblem) ProblemNumber() string {
	return p.GetString(KpmPathProblemNumber)
}

func (p *KpmProblem) Key() string { return p.ProblemNumber() }

func (p *KpmProblem) ShortText() string   { return p.GetString(KpmPathShortText) }
func (p *KpmProblem) Description() string { return p.GetString(KpmPathDescription) }
func (p *KpmProblem) Rating() string      { return p.GetString(KpmPathRating) }
func (p *KpmProblem) Repeatable() string  { return p.GetString(KpmPathRepeatable) }

// Exclaimer is the reporting person on the OEM side.
func (p *KpmProblem) Exclaimer() string { return p.GetString(KpmPathExclaimer) }

// ProblemStatus is the KPM lifecycle status code, "5" and "6" are closed.
func (p *KpmProblem) ProblemStatus() string {
	return p.GetString(KpmPathProblemStatus)
}

// SupplierStatus is the supplier-side status code, empty when the problem
// was never handed over.
func (p *KpmProblem) SupplierStatus() string {
	return p.GetString(KpmPathSupplierStatus)
}

func (p *KpmProblem) EngineeringStatus() string {
	return p.GetString(KpmPathEngineeringStatus)
}

// SupplierUserID is the personal contractor the problem is assigned to.
func (p *KpmProblem) SupplierUserID() string {
	return p.GetString(KpmPathSupplierUserID)
}

// ExternalProblemNumber holds the linked Jira issue key once set in KPM.
func (p *KpmProblem) ExternalProblemNumber() string {
	return p.GetString(KpmPathExternalProblemNo)
}

func (p *KpmProblem) Software() string {
	return p.GetString(KpmPathSoftware)
}

func (p *KpmProblem) Hardware() string {
	return p.GetString(KpmPathHardware)
}

func (p *KpmProblem) LastChange() string {
	return p.GetString(KpmPathLastChange)
}

// SupplierPlantAndOrgUnit returns the supplier address routing, used to
// verify the problem actually sits in the configured inbox.
func (p *KpmProblem) SupplierPlantAndOrgUnit() (string, string) {
	address, ok := p.GetField(KpmPathSupplierAddress).(map[string]any)
	if !ok {
		return "", ""
	}
	return stringAt(address, KpmPathPlant), stringAt(address, KpmPathOrganisationalUnit)
}

// VerbundRelease returns the raw release triple (Major/Minor/Extend).
func (p *KpmProblem) VerbundRelease() map[string]any {
	if m, ok := p.GetField(KpmPathVerbundRelease).(map[string]any); ok {
		return m
	}
	return nil
}

// PartNumberString concatenates the part number components in KPM order.
func (p *KpmProblem) PartNumberString() string {
	part, ok := p.GetField(KpmPathForemostTestPart + "/PartNumber").(map[string]any)
	if !ok {
		return ""
	}
	value := ""
	for _, prop := range []string{
		"PreNumber", "MiddleGroup", "EndNumber", "Index", "Charge", "ChargeSerialNumber",
	} {
		value += stringAt(part, prop)
	}
	return value
}

func (p *KpmProblem) String() string {
	return "KPM " + p.ProblemNumber()
}
