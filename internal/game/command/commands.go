package command

// Handler identifiers for console directives.
const (
	HandlerTarget = "target"
	HandlerMove   = "move"
	HandlerEnd    = "end"
	HandlerStatus = "status"
	HandlerSave   = "save"
	HandlerHelp   = "help"
	HandlerQuit   = "quit"
)

// Directive defines a console driver command. Directives steer the session
// (targeting, movement, saving) and are never matched against the combat vocabulary.
type Directive struct {
	// Name is the canonical directive name.
	Name string
	// Aliases are alternate names for this directive.
	Aliases []string
	// Usage shows the argument form.
	Usage string
	// Help is the short help text.
	Help string
	// Handler identifies the driver routine.
	Handler string
}

// BuiltinDirectives returns all directives understood by the console driver.
func BuiltinDirectives() []Directive {
	return []Directive{
		{Name: "target", Aliases: []string{"t"}, Usage: ":target <n>", Help: "Lock onto enemy number n.", Handler: HandlerTarget},
		{Name: "move", Aliases: []string{"m"}, Usage: ":move <q> <r>", Help: "Step to an adjacent cell.", Handler: HandlerMove},
		{Name: "pass", Aliases: []string{"p"}, Usage: ":pass", Help: "End the player turn.", Handler: HandlerEnd},
		{Name: "status", Aliases: []string{"s"}, Usage: ":status", Help: "Show combatants and score.", Handler: HandlerStatus},
		{Name: "save", Usage: ":save", Help: "Write a snapshot to the configured slot.", Handler: HandlerSave},
		{Name: "help", Aliases: []string{"h", "?"}, Usage: ":help", Help: "List directives.", Handler: HandlerHelp},
		{Name: "quit", Aliases: []string{"q", "exit"}, Usage: ":quit", Help: "Leave the encounter.", Handler: HandlerQuit},
	}
}
