package secret

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

var bracedVar = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands $VAR and ${VAR} in s. A braced variable that is
// unset is an error; $$ yields a literal $.
func ExpandEnvStrict(s string) (string, error) {
	const dollar = "\x00wikigraph-dollar\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	var missing []string
	for _, m := range bracedVar.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(m[1]); !ok && !slices.Contains(missing, m[1]) {
			missing = append(missing, m[1])
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("secret: unset environment variables: %s", strings.Join(missing, ", "))
	}
	return strings.ReplaceAll(os.ExpandEnv(s), dollar, "$"), nil
}
