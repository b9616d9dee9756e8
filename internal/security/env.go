package security

import (
	"os"
	"slices"
	"strings"
)

// Variables removed from the environment of tool subprocesses (the Python
// interpreter, MCP servers). Prefixes match any suffix; exact names only
// themselves, so DB_PORT survives while DB_PASSWORD does not.
var (
	sensitiveEnvPrefixes = []string{
		"OPENAI_",
		"AZURE_OPENAI_",
		"GOOGLE_APPLICATION_CREDENTIALS",
		"GOOGLE_OAUTH",
		"MATEGEN_",
		"AWS_SECRET",
		"AWS_SESSION_TOKEN",
		"GITHUB_TOKEN",
		"GH_TOKEN",
	}
	sensitiveEnvExact = []string{
		"AWS_SECRET_ACCESS_KEY",
		"DATABASE_URL",
		"DB_PASSWORD",
		"PGPASSWORD",
		"MYSQL_PWD",
	}
)

// SanitizedEnv returns os.Environ() without sensitive variables. Values of
// the remaining variables that embed a credential from store have it
// replaced with RedactPlaceholder. A nil store only filters by name.
func SanitizedEnv(store *CredentialStore) []string {
	var secrets []string
	if store != nil {
		for _, v := range store.Values() {
			if len(v) >= minSecretLen {
				secrets = append(secrets, v)
			}
		}
	}

	env := os.Environ()
	out := make([]string, 0, len(env))
	for _, entry := range env {
		name, _, ok := strings.Cut(entry, "=")
		if !ok || sensitiveEnvVar(name) {
			continue
		}
		out = append(out, replaceLiterals(entry, secrets))
	}
	return out
}

func sensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	if slices.Contains(sensitiveEnvExact, upper) {
		return true
	}
	return slices.ContainsFunc(sensitiveEnvPrefixes, func(p string) bool {
		return strings.HasPrefix(upper, p)
	})
}
