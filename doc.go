/*
Package tryon is a live virtual jewelry try-on pipeline.  Webcam frames are
run through a face landmark model, the keypoint near the left ear is mapped
from pixel space into scene space, and a jewelry model is rendered at that
position over the mirrored video.

The pipeline is split into packages:

  - capture grabs frames from a camera or video file
  - detector, preprocess and npu estimate face mesh keypoints using OpenCV
    DNN or the Rockchip NPU
  - position and bridge convert the tracked keypoint into a scene position
    held in a single writer cell
  - scene and render draw the marker, jewelry and captions over the video
  - server, publish and the tryon command present the result

A Session wires these together from a config.Config.
*/
package tryon
