package terminal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ConfirmWithIO asks a yes/no question on input, stdin and stderr by
// default. End of input counts as no.
func ConfirmWithIO(question string, input io.Reader, output io.Writer) (bool, error) {
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stderr
	}

	fmt.Fprintf(output, "%s [y/N] ", question)

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		default:
			fmt.Fprintf(output, "please answer y or n: ")
		}
	}

	if err := scanner.Err(); err != nil {
		return false, err
	}

	return false, nil
}
