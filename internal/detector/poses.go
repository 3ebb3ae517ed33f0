package detector

// Reference hand poses, in image coordinates (Y grows downward). They seed
// the built-in gesture templates and drive the mock detector in tests.

var thumbsUpPoints = [NumLandmarks][3]float64{
	{0.50, 0.80, 0.00}, // wrist
	{0.55, 0.75, 0.00}, {0.58, 0.65, 0.00}, {0.58, 0.50, 0.00}, {0.58, 0.35, 0.00}, // thumb, raised
	{0.55, 0.70, -0.02}, {0.55, 0.68, -0.05}, {0.52, 0.70, -0.04}, {0.50, 0.72, -0.02}, // index, curled
	{0.50, 0.68, -0.02}, {0.50, 0.66, -0.05}, {0.47, 0.68, -0.04}, {0.45, 0.70, -0.02}, // middle, curled
	{0.45, 0.70, -0.02}, {0.45, 0.68, -0.05}, {0.42, 0.70, -0.04}, {0.40, 0.72, -0.02}, // ring, curled
	{0.40, 0.72, -0.02}, {0.40, 0.70, -0.05}, {0.37, 0.72, -0.04}, {0.35, 0.74, -0.02}, // pinky, curled
}

var openPalmPoints = [NumLandmarks][3]float64{
	{0.50, 0.80, 0.00},
	{0.55, 0.75, 0.02}, {0.62, 0.70, 0.03}, {0.68, 0.65, 0.03}, {0.73, 0.60, 0.03}, // thumb, out to the side
	{0.55, 0.68, 0.00}, {0.57, 0.55, 0.00}, {0.58, 0.45, 0.00}, {0.58, 0.35, 0.00},
	{0.50, 0.66, 0.00}, {0.50, 0.52, 0.00}, {0.50, 0.40, 0.00}, {0.50, 0.28, 0.00},
	{0.45, 0.68, 0.00}, {0.43, 0.55, 0.00}, {0.42, 0.45, 0.00}, {0.42, 0.35, 0.00},
	{0.40, 0.70, 0.00}, {0.37, 0.60, 0.00}, {0.35, 0.50, 0.00}, {0.34, 0.42, 0.00},
}

func pose(points [NumLandmarks][3]float64) HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}
	for i, p := range points {
		h.Points[i] = Point3D{X: p[0], Y: p[1], Z: p[2]}
	}
	return h
}

// ThumbsUpPose returns a hand with the thumb raised and the fingers curled.
func ThumbsUpPose() HandLandmarks {
	return pose(thumbsUpPoints)
}

// OpenPalmPose returns a hand with every finger extended.
func OpenPalmPose() HandLandmarks {
	return pose(openPalmPoints)
}
