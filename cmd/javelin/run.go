package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/javelin-vm/javelin/classfile"
	"github.com/javelin-vm/javelin/errz"
	"github.com/javelin-vm/javelin/loader"
	"github.com/javelin-vm/javelin/object"
	"github.com/javelin-vm/javelin/vm"
)

var (
	runOpts = struct {
		method     string
		descriptor string
		classpath  []string
		maxDepth   int
		timeout    time.Duration
		trace      bool
		timing     bool
	}{}

	runCmd = &cobra.Command{
		Use:   "run <file.class>",
		Short: "Execute a method from a class file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			class, err := classfile.ParseFile(args[0])
			if err != nil {
				return reportError(err)
			}
			method, err := selectMethod(class, runOpts.method, runOpts.descriptor)
			if err != nil {
				return reportError(err)
			}
			if !method.IsStatic() {
				return reportError(errz.Newf(errz.ErrUnsupported,
					"entry method %s.%s is not static", class.Name(), method.Name))
			}
			if method.Desc.ParamCount() != 0 {
				return reportError(errz.Newf(errz.ErrUnsupported,
					"entry method %s.%s%s takes arguments", class.Name(), method.Name, method.Descriptor))
			}

			classes := loader.New(runOpts.classpath, loader.WithLogger(logger))
			options := []vm.Option{vm.WithMaxFrameDepth(runOpts.maxDepth)}
			if runOpts.trace {
				options = append(options, vm.WithObserver(&traceObserver{}))
			}
			machine := vm.New(classes, options...)

			ctx := context.Background()
			if runOpts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, runOpts.timeout)
				defer cancel()
			}

			start := time.Now()
			result, err := machine.Execute(ctx, class, method.Name, method.Descriptor, nil)
			elapsed := time.Since(start)
			if err != nil {
				return reportError(err)
			}
			if runOpts.timing {
				fmt.Fprintf(os.Stderr, "executed in %s\n", elapsed)
			}
			if !object.IsNull(result) {
				fmt.Println(color.CyanString(result.Inspect()))
			}
			return nil
		},
	}
)

func init() {
	runCmd.Flags().StringVarP(&runOpts.method, "method", "m", "main", "Method to execute")
	runCmd.Flags().StringVarP(&runOpts.descriptor, "descriptor", "d", "", "Method descriptor, required when the method name is overloaded")
	runCmd.Flags().StringSliceVarP(&runOpts.classpath, "classpath", "p", nil, "Directories to search for referenced classes")
	runCmd.Flags().IntVar(&runOpts.maxDepth, "max-depth", vm.DefaultMaxFrameDepth, "Maximum call stack depth")
	runCmd.Flags().DurationVar(&runOpts.timeout, "timeout", 0, "Abort execution after this duration")
	runCmd.Flags().BoolVar(&runOpts.trace, "trace", false, "Print every executed instruction to stderr")
	runCmd.Flags().BoolVar(&runOpts.timing, "timing", false, "Show execution time")
	rootCmd.AddCommand(runCmd)
}

// selectMethod resolves a method by name, using the descriptor to pick
// between overloads when one is given.
func selectMethod(class *classfile.Class, name, descriptor string) (*classfile.Method, error) {
	if descriptor != "" {
		method, ok := class.Method(name, descriptor)
		if !ok {
			return nil, errz.Newf(errz.ErrResolution,
				"method %s%s not found on class %s", name, descriptor, class.Name())
		}
		return method, nil
	}
	candidates := class.MethodsByName(name)
	switch len(candidates) {
	case 0:
		return nil, errz.Newf(errz.ErrResolution,
			"method %s not found on class %s", name, class.Name())
	case 1:
		return candidates[0], nil
	default:
		return nil, errz.Newf(errz.ErrResolution,
			"method %s is overloaded on class %s, pass --descriptor to disambiguate",
			name, class.Name())
	}
}

// reportError prints a friendly rendering of a structured error and returns
// a silent error so cobra sets the exit code without double-printing.
func reportError(err error) error {
	if structured, ok := err.(*errz.StructuredError); ok {
		fmt.Fprintln(os.Stderr, color.RedString(structured.FriendlyErrorMessage()))
	} else {
		fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
	}
	return fmt.Errorf("execution failed")
}

// traceObserver prints one line per executed instruction.
type traceObserver struct{}

func (o *traceObserver) OnStep(event vm.StepEvent) bool {
	fmt.Fprintf(os.Stderr, "%s %s.%s pc=%-4d %s\n",
		color.HiBlackString("[trace]"), event.Class, event.Method, event.PC,
		color.YellowString(event.OpcodeName))
	return true
}

func (o *traceObserver) OnCall(event vm.CallEvent) {
	fmt.Fprintf(os.Stderr, "%s call %s.%s%s depth=%d\n",
		color.HiBlackString("[trace]"), event.Class, event.Method, event.Descriptor, event.FrameDepth)
}

func (o *traceObserver) OnReturn(event vm.ReturnEvent) {
	fmt.Fprintf(os.Stderr, "%s return from %s.%s\n",
		color.HiBlackString("[trace]"), event.Class, event.Method)
}
