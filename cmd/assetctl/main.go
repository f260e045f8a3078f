// Command assetctl inspects and validates DGT asset containers.
package main

func main() {
	execute()
}
