package repair

import "time"

// timeNow is swapped in tests.
var timeNow = time.Now
