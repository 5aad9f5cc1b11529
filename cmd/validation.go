package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// allowedCommands lists the programs watch may run after a rebuild.
var allowedCommands = map[string]bool{
	"go":    true, // go build, go vet, go test
	"gofmt": true,
	"make":  true,
	"echo":  true,
}

// validateCustomCommand checks a command line against allowedCommands and
// rejects arguments a shell would interpret.
func validateCustomCommand(command string) error {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty custom command")
	}
	if err := validateCommand(parts[0], allowedCommands); err != nil {
		return err
	}
	return validateArguments(parts[1:])
}

// validateArgument rejects shell metacharacters and path traversal.
func validateArgument(arg string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "{", "}", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(arg, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if strings.Contains(arg, "..") {
		return fmt.Errorf("path traversal attempt detected")
	}

	return nil
}

// validateCommand validates command names against an allowlist
func validateCommand(command string, allowed map[string]bool) error {
	if !allowed[command] {
		names := make([]string, 0, len(allowed))
		for name := range allowed {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("command '%s' is not allowed (allowed: %s)", command, strings.Join(names, ", "))
	}
	return nil
}

// validateArguments validates a slice of arguments
func validateArguments(args []string) error {
	for _, arg := range args {
		if err := validateArgument(arg); err != nil {
			return fmt.Errorf("invalid argument '%s': %w", arg, err)
		}
	}
	return nil
}
