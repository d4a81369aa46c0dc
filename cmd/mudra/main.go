// Command mudra turns hand gestures seen by a webcam into tool selections,
// swipes, slides, strokes and clicks.
package main

func main() {
	Execute()
}
