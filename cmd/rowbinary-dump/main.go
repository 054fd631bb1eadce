package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/clickhouse-wire/chwire/pkg/chvalue"
	"github.com/clickhouse-wire/chwire/pkg/rowbinary"
)

// rowbinary-dump reads a RowBinaryWithNamesAndTypes stream from a file
// argument (or stdin with no argument) and prints decoded rows as a
// debug table. It is a demo binary, not part of the library's public
// API or error-handling surface: it panics on error like the teacher's
// own cmd/example.
func main() {
	flag.Parse()

	var src *os.File
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			panic(err)
		}
		defer f.Close()
		src = f
	} else {
		src = os.Stdin
	}

	reader := rowbinary.NewReader(src, rowbinary.WithNamesAndTypes, nil)
	schema, err := reader.Schema()
	if err != nil {
		panic(err)
	}

	for i, col := range schema {
		if i > 0 {
			fmt.Print("\t")
		}
		fmt.Printf("%s %s", col.Name, col.Type.String())
	}
	fmt.Println()

	for result := range reader.Rows() {
		if !result.IsOk() {
			panic(result.Error())
		}
		row := result.Unwrap()
		for i, v := range row {
			if i > 0 {
				fmt.Print("\t")
			}
			fmt.Print(formatValue(v))
		}
		fmt.Println()
	}
}

func formatValue(v chvalue.Value) string {
	switch v.Kind {
	case chvalue.KindNull:
		return "NULL"
	case chvalue.KindNullable:
		if v.Inner == nil {
			return "NULL"
		}
		return formatValue(*v.Inner)
	case chvalue.KindString, chvalue.KindFixedString:
		return string(v.Str)
	case chvalue.KindEnum:
		return v.EnumName
	default:
		return fmt.Sprintf("%+v", v)
	}
}
