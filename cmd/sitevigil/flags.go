package main

import "flag"

// cliFlags holds the parsed command line.
type cliFlags struct {
	ConfigFile string
	AddURL     string
	ListOnly   bool
	ImportFile string
	ExportFile string
	TriggerID  int64
}

func parseFlags() *cliFlags {
	f := &cliFlags{}

	flag.StringVar(&f.ConfigFile, "config", "", "Path to the YAML/JSON configuration file. Defaults apply when omitted.")
	flag.StringVar(&f.ConfigFile, "c", "", "Alias for -config")
	flag.StringVar(&f.AddURL, "add", "", "Add a source for the given URL with default settings and exit.")
	flag.BoolVar(&f.ListOnly, "list", false, "List configured sources and exit.")
	flag.StringVar(&f.ImportFile, "import", "", "Import sources from a JSON export file and exit.")
	flag.StringVar(&f.ExportFile, "export", "", "Export all sources to a JSON file and exit.")
	flag.Int64Var(&f.TriggerID, "check", 0, "Run one check for the given source id and exit.")

	flag.Parse()
	return f
}
