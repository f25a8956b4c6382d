// Package controller is the seam between composition and the simulation
// controller. All bindings are installed before Run; a started controller
// rejects further installation.
package controller
