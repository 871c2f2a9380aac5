package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/javelin-vm/javelin/classfile"
)

var poolCmd = &cobra.Command{
	Use:   "pool <file.class>",
	Short: "Dump a class file's constant pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		class, err := classfile.ParseFile(args[0])
		if err != nil {
			return reportError(err)
		}
		pool := class.Pool()
		tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "INDEX\tTAG\tVALUE")
		for i := 1; i < pool.Size(); i++ {
			entry, err := pool.Entry(uint16(i))
			if err != nil {
				// Trailing slot of a two-slot constant.
				continue
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\n", i,
				color.New(color.Bold).Sprint(entry.Tag()),
				describeConstant(pool, uint16(i), entry))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(poolCmd)
}

// describeConstant renders an entry's payload, dereferencing composite
// entries so the dump reads without manual index chasing.
func describeConstant(pool *classfile.ConstantPool, index uint16, entry classfile.Constant) string {
	switch c := entry.(type) {
	case *classfile.Utf8Info:
		return fmt.Sprintf("%q", c.Value)
	case *classfile.IntegerInfo:
		return color.YellowString("%d", c.Value)
	case *classfile.FloatInfo:
		return color.YellowString("%g", c.Value)
	case *classfile.LongInfo:
		return color.YellowString("%dL", c.Value)
	case *classfile.DoubleInfo:
		return color.YellowString("%g", c.Value)
	case *classfile.ClassInfo:
		if name, err := pool.ClassName(index); err == nil {
			return name
		}
		return fmt.Sprintf("name=#%d", c.NameIndex)
	case *classfile.StringInfo:
		if s, err := pool.StringValue(index); err == nil {
			return color.GreenString("%q", s)
		}
		return fmt.Sprintf("utf8=#%d", c.Utf8Index)
	case *classfile.NameAndTypeInfo:
		if nat, err := pool.NameAndType(index); err == nil {
			return fmt.Sprintf("%s:%s", nat.Name, nat.Descriptor)
		}
		return fmt.Sprintf("name=#%d descriptor=#%d", c.NameIndex, c.DescriptorIndex)
	case *classfile.FieldrefInfo:
		if ref, err := pool.FieldRef(index); err == nil {
			return fmt.Sprintf("%s.%s:%s", ref.Class, ref.Name, ref.Descriptor)
		}
		return fmt.Sprintf("class=#%d name-and-type=#%d", c.ClassIndex, c.NameAndTypeIndex)
	case *classfile.MethodrefInfo:
		if ref, err := pool.MethodRef(index); err == nil {
			return fmt.Sprintf("%s.%s%s", ref.Class, ref.Name, ref.Descriptor)
		}
		return fmt.Sprintf("class=#%d name-and-type=#%d", c.ClassIndex, c.NameAndTypeIndex)
	case *classfile.InterfaceMethodrefInfo:
		if ref, err := pool.MethodRef(index); err == nil {
			return fmt.Sprintf("%s.%s%s", ref.Class, ref.Name, ref.Descriptor)
		}
		return fmt.Sprintf("class=#%d name-and-type=#%d", c.ClassIndex, c.NameAndTypeIndex)
	default:
		return ""
	}
}
