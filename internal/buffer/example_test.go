package buffer_test

import (
	"fmt"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/buffer"
)

func ExampleRowBuffer() {
	buf := buffer.New(1024*1024, 2)

	for _, row := range []buffer.Row{
		{"O5dkHvDT", "W", "1500"},
		{"PpwPOZMq", "D", "1620"},
	} {
		if err := buf.Add(row); err != nil {
			fmt.Println("Error adding row:", err)
			return
		}
	}

	fmt.Println("Full:", buf.Full())
	rows := buf.Drain()
	fmt.Println("Drained:", len(rows))
	fmt.Println("Empty:", buf.IsEmpty())

	// Output:
	// Full: true
	// Drained: 2
	// Empty: true
}
