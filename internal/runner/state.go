package runner

// State is a step of a task run.
type State int

const (
	StateInit State = iota
	StateCookiesSet
	StateLoggedIn
	StateTaskPageLoaded
	StateButtonFound
	StateClicked
	StateClassified
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateInit:           "init",
	StateCookiesSet:     "cookies_set",
	StateLoggedIn:       "logged_in",
	StateTaskPageLoaded: "task_page_loaded",
	StateButtonFound:    "button_found",
	StateClicked:        "clicked",
	StateClassified:     "classified",
	StateDone:           "done",
	StateFailed:         "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "invalid"
}

// Terminal reports whether the run stops in s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Outcome is how a run ended. Its String form is logged as the "outcome"
// field of the "task outcome" line and must stay stable for log scrapers.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeApplied
	OutcomeAlreadyApplied
	OutcomeUnknown
	OutcomeCooldown
	OutcomeLoginFailed
	OutcomeNoButton
	OutcomeMissingCookie
	OutcomeError
)

var outcomeNames = map[Outcome]string{
	OutcomeNone:           "none",
	OutcomeApplied:        "applied",
	OutcomeAlreadyApplied: "already_applied",
	OutcomeUnknown:        "unknown",
	OutcomeCooldown:       "cooldown",
	OutcomeLoginFailed:    "login_failed",
	OutcomeNoButton:       "no_button",
	OutcomeMissingCookie:  "missing_cookie",
	OutcomeError:          "error",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "invalid"
}

// ExitCode maps the outcome to the process exit status.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeApplied, OutcomeAlreadyApplied, OutcomeUnknown, OutcomeCooldown:
		return 0
	case OutcomeLoginFailed:
		return 2
	case OutcomeNoButton:
		return 3
	default:
		return 1
	}
}
