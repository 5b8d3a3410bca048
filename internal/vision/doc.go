// Package vision binds the capture loop to OpenCV through gocv: a probing
// webcam source, a Haar cascade face detector paired with a DNN embedding
// model, the reference image embedder used to build the gallery, and the
// on-screen window.
//
// Everything here needs OpenCV 4 at build time.
package vision
