package evidence

// Classify maps a source kind to its trust tier. Pure function, fixed
// enumerated mapping; unknown kinds are treated as speculation.
func Classify(kind SourceKind) Tier {
	switch kind {
	case SourceDirectExecution:
		return TierDirectExecution
	case SourceOfficialDoc:
		return TierOfficialDoc
	case SourceWorkingExample:
		return TierWorkingExample
	case SourceIssueReport:
		return TierIssueReport
	default:
		return TierSpeculation
	}
}

// Verdict is the outcome of resolving a hypothesis's accumulated evidence.
type Verdict string

const (
	// VerdictConfirmed: the strongest evidence supports the hypothesis.
	VerdictConfirmed Verdict = "confirmed"
	// VerdictRejected: the strongest evidence contradicts the hypothesis.
	VerdictRejected Verdict = "rejected"
	// VerdictConflict: supporting and contradicting evidence tie at the
	// same tier; a discriminating test is required.
	VerdictConflict Verdict = "conflict"
	// VerdictOpen: no evidence on one or both sides yet decides anything.
	VerdictOpen Verdict = "open"
)

// Resolve applies the conflict rule to a hypothesis's evidence lists: the
// lowest numeric (strongest) tier on each side is compared; strictly stronger
// wins. An equal-tier standoff yields VerdictConflict, never a silent
// decision. With evidence on only one side, that side wins outright.
func Resolve(all []Evidence) Verdict {
	bestSupport, bestContra := Tier(0), Tier(0)
	for _, e := range all {
		switch e.Polarity {
		case Supports:
			if bestSupport == 0 || e.Tier < bestSupport {
				bestSupport = e.Tier
			}
		case Contradicts:
			if bestContra == 0 || e.Tier < bestContra {
				bestContra = e.Tier
			}
		}
	}

	switch {
	case bestSupport == 0 && bestContra == 0:
		return VerdictOpen
	case bestContra == 0:
		return VerdictConfirmed
	case bestSupport == 0:
		return VerdictRejected
	case bestSupport < bestContra:
		return VerdictConfirmed
	case bestContra < bestSupport:
		return VerdictRejected
	default:
		return VerdictConflict
	}
}
