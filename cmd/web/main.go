// Command kulhad serves the Kulhad Cafeteria site.
package main

func main() {
	Execute()
}
