package subunit

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// parseProgress decodes the operand of a progress: directive: a bareword
// push/pop, a signed delta relative to the current count, or an unsigned
// absolute value. An unparseable operand is reported as an error so the
// caller can treat the directive as pass-through instead.
func parseProgress(operand string) (delta int, whence ProgressWhence, err error) {
	switch operand {
	case "push":
		return 0, ProgressPush, nil
	case "pop":
		return 0, ProgressPop, nil
	}

	if strings.HasPrefix(operand, "+") || strings.HasPrefix(operand, "-") {
		n, err := strconv.Atoi(operand)
		if err != nil {
			return 0, ProgressSet, errors.Wrapf(err, "invalid progress operand %q", operand)
		}
		return n, ProgressCur, nil
	}

	n, err := strconv.Atoi(operand)
	if err != nil {
		return 0, ProgressSet, errors.Wrapf(err, "invalid progress operand %q", operand)
	}
	return n, ProgressSet, nil
}
