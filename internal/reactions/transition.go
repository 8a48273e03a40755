package reactions

// Polarity identifies which side of the mutually exclusive reaction pair a
// request targets.
type Polarity string

const (
	PolarityLike    Polarity = "like"
	PolarityDislike Polarity = "dislike"
)

// Valid reports whether the polarity is one of the two known values.
func (p Polarity) Valid() bool {
	return p == PolarityLike || p == PolarityDislike
}

// transition describes the set mutations a toggle must apply. At most one
// polarity is added and at most the opposite pair removed, so the actor ends
// in at most one set.
type transition struct {
	removeLike    bool
	removeDislike bool
	add           Polarity
}

// planTransition computes the mutation for the actor's current membership and
// the requested polarity:
//
//	neither        -> join the requested set
//	liked, like    -> leave likedBy (toggle off)
//	liked, dislike -> leave likedBy, join dislikedBy (switch)
//	disliked, *    -> mirror of the liked rows
//	both           -> refused, the invariant is already broken
func planTransition(liked, disliked bool, requested Polarity) (transition, error) {
	if !requested.Valid() {
		return transition{}, ErrInvalidPolarity
	}

	switch {
	case liked && disliked:
		return transition{}, ErrInconsistentState
	case !liked && !disliked:
		return transition{add: requested}, nil
	case liked:
		if requested == PolarityLike {
			return transition{removeLike: true}, nil
		}
		return transition{removeLike: true, add: PolarityDislike}, nil
	default:
		if requested == PolarityDislike {
			return transition{removeDislike: true}, nil
		}
		return transition{removeDislike: true, add: PolarityLike}, nil
	}
}
