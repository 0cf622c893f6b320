// Command sesame runs, inspects and converts OpenSesame experiments from
// the terminal.
package main

func main() {
	Execute()
}
