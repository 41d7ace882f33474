package runner

import (
	"sort"
	"strings"
)

// environMap converts KEY=VALUE pairs into a map. A later duplicate key wins,
// matching how the OS resolves duplicate environment entries.
func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// environList converts the map back into sorted KEY=VALUE pairs. Sorting
// keeps the constructed environment deterministic.
func environList(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for key, value := range env {
		list = append(list, key+"="+value)
	}
	sort.Strings(list)
	return list
}
