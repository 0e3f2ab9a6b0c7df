package authz

// ResourceMapping names the capability an operation needs.
type ResourceMapping struct {
	Resource string
	Verb     string
}

// UnknownMapping is returned for operations with no known capability.
// Callers must deny them.
var UnknownMapping = ResourceMapping{}

var legacyActions = map[string]ResourceMapping{
	"menuforge_save_settings":  {ResourceSettings, VerbUpdate},
	"menuforge_reset_settings": {ResourceSettings, VerbUpdate},
	"menuforge_create_backup":  {ResourceBackups, VerbCreate},
	"menuforge_restore_backup": {ResourceBackups, VerbRestore},
	"menuforge_delete_backup":  {ResourceBackups, VerbDelete},
	"menuforge_preview":        {ResourcePreview, VerbCreate},
	"menuforge_export":         {ResourceTransfer, VerbExport},
	"menuforge_import":         {ResourceTransfer, VerbImport},
}

// MapLegacyAction returns the capability required by a legacy form action.
func MapLegacyAction(action string) ResourceMapping {
	if m, ok := legacyActions[action]; ok {
		return m
	}
	return UnknownMapping
}

// LegacyActions lists every legacy action name.
func LegacyActions() []string {
	out := make([]string, 0, len(legacyActions))
	for a := range legacyActions {
		out = append(out, a)
	}
	return out
}
