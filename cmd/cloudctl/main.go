// cloudctl - cloud account registry
// Register. Validate. Verify.
package main

func main() {
	Execute()
}
