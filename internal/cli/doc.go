// Package cli is responsible for parsing command-line arguments, validating
// user input, and running a program file in the terminal. It translates
// CLI flags into the runner configuration.
package cli
