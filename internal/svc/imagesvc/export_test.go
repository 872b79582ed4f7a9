package imagesvc

// RefuseNonPublic exposes the http reader's dial hook.
var RefuseNonPublic = refuseNonPublic
