package jobqueue

// autoApprovedJobTypes is the default table of maintenance job types that
// are approved at enqueue time with approved_by = "system":
// cleanup, projection, vocabulary refresh, epistemic remeasurement, and
// consolidation. `ingestion`, `source_embedding`, and `proposal_execution`
// are user/pipeline-initiated and always require an explicit Approve call.
var autoApprovedJobTypes = map[JobType]bool{
	TypeArtifactCleanup:    true,
	TypeProjection:         true,
	TypeVocabRefresh:       true,
	TypeEpistemicRemeasure: true,
	TypeVocabConsolidate:   true,
}

// approvalPolicy is the indirection point the Open Questions decision (O4)
// calls for: the default table governs, with a single seam for a future
// override source (e.g. an operator-configurable table) to plug into
// without changing every call site.
type approvalPolicy struct {
	overrides map[JobType]bool
}

func newApprovalPolicy() *approvalPolicy {
	return &approvalPolicy{}
}

// isAutoApproved reports whether jobType should be auto-approved at enqueue
// time. overrides, when set for a type, take precedence over the default
// table.
func (p *approvalPolicy) isAutoApproved(jobType JobType) bool {
	if p.overrides != nil {
		if v, ok := p.overrides[jobType]; ok {
			return v
		}
	}
	return autoApprovedJobTypes[jobType]
}

// SetOverride lets an operator change a single job type's auto-approval
// behavior at runtime without redeploying the default table.
func (p *approvalPolicy) SetOverride(jobType JobType, autoApprove bool) {
	if p.overrides == nil {
		p.overrides = map[JobType]bool{}
	}
	p.overrides[jobType] = autoApprove
}
