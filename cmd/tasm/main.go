// Command tasm is the TESSERA-16 assembler front end: it lexes, preprocesses
// and parses assembly source, printing tokens or the AST on request and
// writing the preprocessed text as its output artifact.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tessera-cpu/tasm/internal/assembler/lexer"
	"github.com/tessera-cpu/tasm/internal/assembler/parser"
	"github.com/tessera-cpu/tasm/internal/assembler/preproc"
)

const version = "0.3.0"

var (
	sourceFile  string
	outputFile  string
	includeDirs []string
	lexOnly     bool
	parseOnly   bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "tasm",
	Short: "Assembler front end for the TESSERA-16 CPU",
	Long: `Tasm turns TESSERA-16 assembly source into a validated syntax tree.
The pipeline runs lexing, macro preprocessing and parsing in order;
--lex-only and --parse-only stop after the corresponding stage and print
its result instead of writing the preprocessed output.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&sourceFile, "source", "s", "", "assembly source file (required)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file for the preprocessed text")
	rootCmd.Flags().StringArrayVarP(&includeDirs, "include", "I", nil, "additional .include search directory (repeatable)")
	rootCmd.Flags().BoolVar(&lexOnly, "lex-only", false, "print the token stream and exit")
	rootCmd.Flags().BoolVar(&parseOnly, "parse-only", false, "print the AST and exit")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "print pipeline progress to stderr")
	_ = rootCmd.MarkFlagRequired("source")
}

func run(cmd *cobra.Command, args []string) error {
	if outputFile == "" && !lexOnly && !parseOnly {
		return fmt.Errorf("--output is required unless --lex-only or --parse-only is set")
	}

	data, err := os.ReadFile(sourceFile)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	progress("lexing %s", sourceFile)
	lx, err := lexer.Load(string(data), sourceFile)
	if err != nil {
		return err
	}
	if lexOnly {
		dumpTokens(lx)
		return nil
	}

	progress("preprocessing")
	pp := preproc.New(preproc.Options{IncludeDirs: includeDirs, Diag: os.Stderr})
	if err := pp.Run(lx); err != nil || !pp.Good() {
		fmt.Fprint(os.Stderr, pp.Errors().String())
		return fmt.Errorf("preprocessing failed with %d error(s)", len(pp.Errors().Errors))
	}

	progress("parsing")
	relexed, err := lexer.Load(pp.Output(), sourceFile)
	if err != nil {
		return err
	}
	p := parser.New(nil)
	mod, err := p.Parse(relexed)
	if err != nil {
		return err
	}
	if parseOnly {
		fmt.Print(mod.String())
		return nil
	}

	progress("writing %s", outputFile)
	if err := os.WriteFile(outputFile, []byte(pp.Output()), 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func dumpTokens(lx *lexer.Lexer) {
	for _, t := range lx.Tokens() {
		fmt.Printf("%s:%d:%d\t%s\t%q\n", t.Pos.File, t.Pos.Line, t.Pos.Column, t.Kind, t.Lexeme)
	}
}

func progress(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "tasm: "+format+"\n", args...)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
