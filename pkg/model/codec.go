package model

import (
	"encoding/json"
	"fmt"
	"trainer/pkg/serrors"
)

// ArtifactVersion is the current encoding version of stored models.
const ArtifactVersion = 1

// Artifact is the serialized form of a trained model: the fitted
// preprocessing state plus exactly one model payload matching Kind.
type Artifact struct {
	Version    int           `json:"version"`
	Kind       Kind          `json:"kind"`
	Params     Params        `json:"params"`
	Preprocess *Preprocessor `json:"preprocess"`

	Linear *Linear `json:"linear,omitempty"`
	Tree   *Tree   `json:"tree,omitempty"`
	Forest *Forest `json:"forest,omitempty"`
}

// NewArtifact wraps a fitted regressor and its preprocessing state for
// storage.
func NewArtifact(kind Kind, p Params, pre *Preprocessor, reg Regressor) (Artifact, error) {
	a := Artifact{Version: ArtifactVersion, Kind: kind, Params: p, Preprocess: pre}

	switch m := reg.(type) {
	case *Linear:
		a.Linear = m
	case *Tree:
		a.Tree = m
	case *Forest:
		a.Forest = m
	default:
		return Artifact{}, fmt.Errorf("unsupported regressor type %T", reg)
	}

	return a, nil
}

// Encode renders the artifact as JSON.
func Encode(a Artifact) ([]byte, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("could not marshal artifact: %w", err)
	}

	return b, nil
}

// Decode parses and validates an artifact produced by Encode. Unknown
// versions and payload/kind mismatches are rejected.
func Decode(b []byte) (Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(b, &a); err != nil {
		return Artifact{}, serrors.Wrap(serrors.ErrBadRequest, err, "could not unmarshal artifact")
	}

	if a.Version != ArtifactVersion {
		return Artifact{}, serrors.With(serrors.ErrBadRequest,
			"unsupported artifact version %d, want %d", a.Version, ArtifactVersion)
	}
	if a.Preprocess == nil {
		return Artifact{}, serrors.With(serrors.ErrBadRequest, "artifact misses preprocessing state")
	}
	if _, err := a.Regressor(); err != nil {
		return Artifact{}, err
	}

	return a, nil
}

// Regressor returns the model payload matching the artifact kind.
func (a Artifact) Regressor() (Regressor, error) {
	switch a.Kind {
	case KindLinear:
		if a.Linear == nil {
			return nil, serrors.With(serrors.ErrBadRequest, "artifact misses linear payload")
		}

		return a.Linear, nil
	case KindTree:
		if a.Tree == nil || len(a.Tree.Nodes) == 0 {
			return nil, serrors.With(serrors.ErrBadRequest, "artifact misses tree payload")
		}

		return a.Tree, nil
	case KindForest:
		if a.Forest == nil || len(a.Forest.Trees) == 0 {
			return nil, serrors.With(serrors.ErrBadRequest, "artifact misses forest payload")
		}

		return a.Forest, nil
	default:
		return nil, serrors.With(serrors.ErrBadRequest, "unknown artifact kind %q", a.Kind)
	}
}
