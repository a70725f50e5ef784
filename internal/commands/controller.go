// Package commands contains the CLI commands for the application
package commands

type Flags struct {
	LogLevel   string
	ConfigPath string
}

type Controller struct {
	Flags *Flags
}
