// Command clockctl talks to the clock controller firmware: it reads and
// reprograms the PLL, samples the load and exports it to Prometheus.
package main

func main() {
	Execute()
}
