package codedam_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/nnorbert/codedam"
)

// Example_programBuilder builds a small program and runs it to the end.
func Example_programBuilder() {
	ctx := context.Background()
	out := &printer{}

	prog, err := codedam.NewBuilder("Greeting").
		Var("name", codedam.Text("gopher")).
		Print(codedam.Join(codedam.Text("hello, "), codedam.Title(codedam.Ref("name")))).
		Build(ctx, out)
	if err != nil {
		log.Fatal(err)
	}

	s := codedam.NewSession(prog, codedam.SessionConfig{})
	defer s.Close()
	if err := s.Start(ctx); err != nil {
		log.Fatal(err)
	}
	if err := s.RunToEnd(ctx); err != nil {
		log.Fatal(err)
	}
	fmt.Println(s.Status())
	// Output:
	// hello, Gopher
	// FINISHED
}

// Example_stepping steps through a program and prints the variable in
// scope after each step.
func Example_stepping() {
	ctx := context.Background()

	prog := codedam.NewBuilder("Counter").
		Var("x", codedam.Num(0)).
		Set("x", codedam.Add(codedam.Ref("x"), codedam.Num(6))).
		MustBuild(ctx, nil)

	s := codedam.NewSession(prog, codedam.SessionConfig{})
	defer s.Close()
	if err := s.Start(ctx); err != nil {
		log.Fatal(err)
	}
	for {
		res, err := s.Step(ctx)
		if err != nil {
			log.Fatal(err)
		}
		x, _ := s.Snapshot().Lookup("x")
		if res.Done {
			fmt.Println("done x =", codedam.FormatValue(x.Value))
			return
		}
		fmt.Printf("%s x = %s\n", res.Widget.Descriptor().Tag, codedam.FormatValue(x.Value))
	}
	// Output:
	// create_variable x = 0
	// set_variable x = 0
	// done x = 6
}

// Example_programFile loads a program from its HCL description.
func Example_programFile() {
	ctx := context.Background()
	out := &printer{}

	src := `
settings {
  title = "Loop"
}

repeat {
  count = 2
  body {
    print { value = "tick" }
  }
}
`
	prog, err := codedam.LoadProgram(ctx, "loop.hcl", []byte(src), out)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(codedam.Preview(prog.Root, nil))

	s := codedam.NewSession(prog.Root, codedam.SessionConfig{})
	defer s.Close()
	if err := s.Start(ctx); err != nil {
		log.Fatal(err)
	}
	if err := s.RunToEnd(ctx); err != nil {
		log.Fatal(err)
	}
	// Output:
	//   repeat 2 times
	//       print("tick")
	// tick
	// tick
}

// printer shows messages on stdout and declines every prompt.
type printer struct {
	codedam.NoopPrompter
}

func (p *printer) Show(ctx context.Context, message string) error {
	fmt.Println(strings.TrimSpace(message))
	return nil
}
