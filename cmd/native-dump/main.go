package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/clickhouse-wire/chwire/internal/wireio"
	"github.com/clickhouse-wire/chwire/pkg/native"
)

// native-dump reads a Native stream from a file argument (or stdin) and
// prints each block's header (num_columns, num_rows, per-column
// name/type); with -rows it also prints decoded row values. Blocks are
// assumed uncompressed unless -compressed is given, since the wire
// format carries no stream-level flag announcing whether frames are
// present.
func main() {
	rows := flag.Bool("rows", false, "print decoded row values, not just block headers")
	compressed := flag.Bool("compressed", false, "read each block through the checksummed compression frame")
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

	plainReader := wireio.NewReader(src)

	blockNum := 0
	for {
		var block native.Block
		var err error
		if *compressed {
			block, err = native.DecodeCompressedBlock(src)
		} else {
			block, err = native.DecodeBlock(plainReader)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			panic(err)
		}

		fmt.Printf("block %d: %d columns, %d rows\n", blockNum, len(block.Columns), block.NumRows())
		for _, col := range block.Columns {
			fmt.Printf("  %s %s\n", col.Name, col.Type.String())
		}
		if *rows {
			for r := 0; r < block.NumRows(); r++ {
				for i, col := range block.Columns {
					if i > 0 {
						fmt.Print("\t")
					}
					fmt.Printf("%+v", col.Values[r])
				}
				fmt.Println()
			}
		}
		blockNum++
	}
}
