package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/bpowers/sdsim/internal/build"
	"github.com/bpowers/sdsim/internal/errs"
	"github.com/bpowers/sdsim/internal/loader"
	"github.com/bpowers/sdsim/internal/model"
	"github.com/bpowers/sdsim/internal/sim"
	"github.com/bpowers/sdsim/internal/stdlib"
	"github.com/bpowers/sdsim/internal/vm"
)

var (
	// Version info - set by ldflags during build
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"

	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func main() {
	var (
		versionFlag = flag.Bool("version", false, "Print version information")
		helpFlag    = flag.Bool("help", false, "Show help")
		varsFlag    = flag.String("vars", "", "Comma-separated list of variables to print (default: all)")
	)

	flag.Parse()

	if *versionFlag {
		printVersion()
		return
	}

	if *helpFlag || flag.NArg() == 0 {
		printHelp()
		return
	}

	switch command := flag.Arg(0); command {
	case "run":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
			fmt.Println("Usage: sdsim run <model.yaml>")
			os.Exit(1)
		}
		runFile(flag.Arg(1), *varsFlag)

	case "check":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
			fmt.Println("Usage: sdsim check <model.yaml>")
			os.Exit(1)
		}
		checkFile(flag.Arg(1))

	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command '%s'\n", red("Error"), command)
		printHelp()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("sdsim %s\n", bold(Version))
	if Commit != "unknown" {
		fmt.Printf("Commit: %s\n", Commit)
	}
	if BuildTime != "unknown" {
		fmt.Printf("Built:  %s\n", BuildTime)
	}
}

func printHelp() {
	fmt.Println(bold("sdsim - system dynamics simulation engine"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sdsim <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Printf("  %s <file>    Run a model to completion and print its saved series\n", cyan("run"))
	fmt.Printf("  %s <file>  Parse, lower, and link a model without running it\n", cyan("check"))
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --version      Print version information")
	fmt.Println("  --help         Show this help message")
	fmt.Println("  --vars <list>  Comma-separated variables to print (run only)")
}

// loadAndLink reads path, parses it into a model.Project, and links it into
// a runnable program, printing any diagnostics and exiting on failure.
func loadAndLink(path string) (model.Project, *build.Linked) {
	proj, err := loader.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}

	linked, diags := build.Compile(proj)
	if diags != nil && !diags.Empty() {
		fmt.Fprint(os.Stderr, errs.RenderList("build diagnostics", diags))
	}
	if linked == nil {
		os.Exit(1)
	}
	return proj, linked
}

func checkFile(path string) {
	proj, linked := loadAndLink(path)
	fmt.Printf("%s %s (%d slots)\n", color.New(color.FgGreen).SprintFunc()("OK"), path, linked.SlotCount)

	if root, ok := proj.RootModel(); ok {
		instances := stdlib.Enumerate(root, lookupModelFunc(proj))
		if len(instances) > 0 {
			fmt.Println(bold("sub-model instantiations:"))
			for _, inst := range instances {
				fmt.Printf("  %s(%s)\n", inst.ModelName, strings.Join(inst.InputSet, ", "))
			}
		}
	}
}

// lookupModelFunc resolves a Module variable's model name to its
// definition, following stdlib.Enumerate's contract: a "stdlib⁚..." name
// resolves through the builtin catalog, anything else through proj's own
// model list.
func lookupModelFunc(proj model.Project) func(name string) (model.Model, bool) {
	return func(name string) (model.Model, bool) {
		for _, m := range proj.Models {
			if m.Name == name {
				return m, true
			}
		}
		for _, builtin := range stdlib.Names() {
			if stdlib.ModelName(builtin) == name {
				return stdlib.Model(builtin)
			}
		}
		return model.Model{}, false
	}
}

func runFile(path string, varsFlag string) {
	proj, linked := loadAndLink(path)

	curr := make([]float64, linked.SlotCount)
	next := make([]float64, linked.SlotCount)
	curr[1] = proj.SimSpecs.Dt.Dt()
	exec := vm.New(linked.VM, curr, next)

	results := sim.Run(exec, proj.SimSpecs, 0, linked.SlotCount, linked.Offsets)

	idents := selectedIdents(linked.Offsets, varsFlag)
	printTable(results, idents)
}

func selectedIdents(offsets map[string]int, varsFlag string) []string {
	if varsFlag == "" {
		idents := make([]string, 0, len(offsets))
		for id := range offsets {
			if id == "time" || id == "dt" {
				continue
			}
			idents = append(idents, id)
		}
		sort.Strings(idents)
		return idents
	}
	parts := strings.Split(varsFlag, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printTable(results *sim.Results, idents []string) {
	fmt.Printf("%s", bold("time"))
	for _, id := range idents {
		fmt.Printf("\t%s", cyan(id))
	}
	fmt.Println()

	series := make(map[string][]float64, len(idents))
	for _, id := range idents {
		vals, ok := results.At(id)
		if !ok {
			fmt.Fprintf(os.Stderr, "%s: unknown variable %q\n", yellow("Warning"), id)
			continue
		}
		series[id] = vals
	}

	for i, t := range results.Times {
		fmt.Printf("%s", strconv.FormatFloat(t, 'g', -1, 64))
		for _, id := range idents {
			vals := series[id]
			if vals == nil {
				fmt.Print("\t")
				continue
			}
			fmt.Printf("\t%s", strconv.FormatFloat(vals[i], 'g', -1, 64))
		}
		fmt.Println()
	}
}
