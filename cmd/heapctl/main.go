// Command heapctl drives heapkit allocators from the host: it simulates
// workloads, replays allocation traces, and prints size-class tables.
package main

func main() {
	execute()
}
