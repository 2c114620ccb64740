package quadlet

import "strings"

// Substitutions is the closed set of placeholders the generator resolves
// before emitting a quadlet. Unlisted placeholders are left
// verbatim rather than causing an error; generate is meant to be forgiving
// of service-specific placeholders that happen to look like ours.
type Substitutions struct {
	DataDir          string
	UploadLocation   string
	DBDataLocation   string
	DBUsername       string
	DBDatabaseName   string
}

// Apply performs value substitution on s, never touching shell expansion:
// the output is written verbatim into the quadlet, with no shell expansion
// happening at generation time.
func (s Substitutions) Apply(in string) string {
	r := strings.NewReplacer(
		"${DATA_DIR}", s.DataDir,
		"${UPLOAD_LOCATION}", s.UploadLocation,
		"${DB_DATA_LOCATION}", s.DBDataLocation,
		"${DB_USERNAME}", s.DBUsername,
		"${DB_DATABASE_NAME}", s.DBDatabaseName,
	)
	return r.Replace(in)
}
