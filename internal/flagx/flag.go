// Package flagx lets several independent flag sets share one command line.
// Each consumer picks out only the flags it owns, so the JSON config loader
// and the main flag set never trip over each other's flags.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the arguments that belong to allowedFlags, in their
// original order.
//
// Accepted forms are "-name value", "-name=value" and the same with a double
// dash; "--name" matches an allowed "-name" and the other way round. A value
// is only taken from the next argument when it does not start with '-'.
// Flags listed in boolFlags never take the next argument, so "-tls file"
// keeps "file" out of the result.
func FilterArgs(args []string, allowedFlags []string, boolFlags ...string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[flagName(f)] = struct{}{}
	}
	boolean := make(map[string]struct{}, len(boolFlags))
	for _, f := range boolFlags {
		boolean[flagName(f)] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		// "-name=value" carries its own value
		if name, _, ok := strings.Cut(arg, "="); ok {
			if _, ok := allowed[flagName(name)]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		name := flagName(arg)
		if _, ok := allowed[name]; !ok {
			continue
		}
		filtered = append(filtered, arg)

		if _, isBool := boolean[name]; isBool {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// flagName strips one or two leading dashes.
func flagName(s string) string {
	s = strings.TrimPrefix(s, "-")
	return strings.TrimPrefix(s, "-")
}

// ConfigFile returns the path given with -c or -config in args, or "" when
// neither is present. The last occurrence wins.
func ConfigFile(args []string) string {
	var config string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.SetOutput(discard{})
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return config
}

// JsonConfigFlags is ConfigFile over os.Args.
func JsonConfigFlags() string {
	return ConfigFile(os.Args[1:])
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
