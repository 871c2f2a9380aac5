package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/javelin-vm/javelin/classfile"
	"github.com/javelin-vm/javelin/dis"
)

var (
	disOpts = struct {
		method string
	}{}

	disCmd = &cobra.Command{
		Use:   "dis <file.class>",
		Short: "Disassemble class file bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			class, err := classfile.ParseFile(args[0])
			if err != nil {
				return reportError(err)
			}
			methods := class.Methods()
			if disOpts.method != "" {
				methods = class.MethodsByName(disOpts.method)
				if len(methods) == 0 {
					return reportError(fmt.Errorf("method %s not found on class %s",
						disOpts.method, class.Name()))
				}
			}
			for _, method := range methods {
				fmt.Printf("%s %s%s\n", color.New(color.Bold).Sprint(class.Name()),
					method.Name, method.Descriptor)
				if method.Code == nil {
					fmt.Println("  (no code)")
					continue
				}
				instructions, err := dis.Disassemble(method, class.Pool())
				if err != nil {
					fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
				}
				dis.Print(instructions, os.Stdout)
				fmt.Println()
			}
			return nil
		},
	}
)

func init() {
	disCmd.Flags().StringVarP(&disOpts.method, "method", "m", "", "Disassemble only this method")
	rootCmd.AddCommand(disCmd)
}
