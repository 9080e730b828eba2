// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

// =============================================================================
// Parameter Providers
// =============================================================================

// ParameterProviderEntity is the envelope the server returns for a parameter provider.
type ParameterProviderEntity struct {
	ID          string                     `json:"id"`
	URI         string                     `json:"uri,omitempty"`
	Revision    Revision                   `json:"revision"`
	Permissions Permissions                `json:"permissions"`
	Bulletins   []BulletinEntity           `json:"bulletins,omitempty"`
	Component   ParameterProviderComponent `json:"component"`
}

// Name returns the component name, or the id when the component is unreadable.
func (e ParameterProviderEntity) Name() string {
	if e.Component.Name != "" {
		return e.Component.Name
	}
	return e.ID
}

// ParameterProviderComponent holds the configuration of a parameter provider.
type ParameterProviderComponent struct {
	ID                           string                                `json:"id"`
	Name                         string                                `json:"name,omitempty"`
	Type                         string                                `json:"type,omitempty"`
	Bundle                       Bundle                                `json:"bundle,omitzero"`
	Comments                     string                                `json:"comments,omitempty"`
	Properties                   map[string]*string                    `json:"properties,omitempty"`
	Descriptors                  map[string]PropertyDescriptor         `json:"descriptors,omitempty"`
	ValidationErrors             []string                              `json:"validationErrors,omitempty"`
	ValidationStatus             string                                `json:"validationStatus,omitempty"`
	ParameterGroupConfigurations []ParameterGroupConfiguration         `json:"parameterGroupConfigurations,omitempty"`
	ReferencingParameterContexts []ParameterProviderReferencingContext `json:"referencingParameterContexts,omitempty"`
	AffectedComponents           []AffectedComponentEntity             `json:"affectedComponents,omitempty"`
	ParameterStatus              []ParameterStatus                     `json:"parameterStatus,omitempty"`
}

// ParameterGroupConfiguration maps a fetched parameter group onto a parameter context.
type ParameterGroupConfiguration struct {
	GroupName              string            `json:"groupName" validate:"required"`
	ParameterContextName   string            `json:"parameterContextName,omitempty"`
	Synchronized           *bool             `json:"synchronized,omitempty"`
	ParameterSensitivities map[string]string `json:"parameterSensitivities,omitempty"`
}

// IsSynchronized reports whether the group is kept in sync with a parameter context.
func (g ParameterGroupConfiguration) IsSynchronized() bool {
	return g.Synchronized != nil && *g.Synchronized
}

// Parameter sensitivity values.
const (
	SensitivitySensitive    = "SENSITIVE"
	SensitivityNonSensitive = "NON_SENSITIVE"
)

// ParameterContextReference names a parameter context.
type ParameterContextReference struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ParameterProviderReferencingContext is a parameter context synced from a provider.
type ParameterProviderReferencingContext struct {
	ID          string                    `json:"id"`
	Permissions Permissions               `json:"permissions"`
	Component   ParameterContextReference `json:"component"`
}

// AffectedComponent is a component that will restart when parameters are applied.
type AffectedComponent struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ReferenceType  string `json:"referenceType"`
	ProcessGroupID string `json:"processGroupId,omitempty"`
	State          string `json:"state,omitempty"`
}

// AffectedComponentEntity wraps an affected component with permissions.
type AffectedComponentEntity struct {
	ID          string            `json:"id"`
	Permissions Permissions       `json:"permissions"`
	Component   AffectedComponent `json:"component"`
}

// ParameterStatus reports what applying the fetched parameters would change.
type ParameterStatus struct {
	Status    string `json:"status"`
	Parameter struct {
		Name      string `json:"name"`
		Sensitive bool   `json:"sensitive"`
	} `json:"parameter"`
}

// Parameter status values.
const (
	ParameterNew       = "NEW"
	ParameterChanged   = "CHANGED"
	ParameterRemoved   = "REMOVED"
	ParameterMissing   = "MISSING_BUT_REFERENCED"
	ParameterUnchanged = "UNCHANGED"
)

// ParameterProvidersEntity is the listing envelope.
type ParameterProvidersEntity struct {
	ParameterProviders []ParameterProviderEntity `json:"parameterProviders"`
	CurrentTime        string                    `json:"currentTime,omitempty"`
}

// ParameterProviderTypesEntity lists the parameter provider types the server knows.
type ParameterProviderTypesEntity struct {
	ParameterProviderTypes []DocumentedType `json:"parameterProviderTypes"`
}

// =============================================================================
// Requests
// =============================================================================

// CreateParameterProviderRequest asks the server to instantiate a provider type.
type CreateParameterProviderRequest struct {
	ParameterProviderType   string   `json:"parameterProviderType" validate:"required"`
	ParameterProviderBundle Bundle   `json:"parameterProviderBundle" validate:"required"`
	Revision                Revision `json:"revision"`
}

// ParameterProviderPayload is the body of a parameter provider update.
type ParameterProviderPayload struct {
	Revision                     Revision                   `json:"revision"`
	DisconnectedNodeAcknowledged bool                       `json:"disconnectedNodeAcknowledged"`
	Component                    ParameterProviderComponent `json:"component"`
}

// UpdateParameterProviderRequest is what an edit dialog emits on submit.
type UpdateParameterProviderRequest struct {
	Payload              ParameterProviderPayload `json:"payload"`
	PostUpdateNavigation []string                 `json:"postUpdateNavigation,omitempty"`
}

// ConfigureParameterProviderRequest is an update bound to a specific entity.
type ConfigureParameterProviderRequest struct {
	ID                   string                   `json:"id" validate:"required"`
	URI                  string                   `json:"uri,omitempty"`
	Payload              ParameterProviderPayload `json:"payload"`
	PostUpdateNavigation []string                 `json:"postUpdateNavigation,omitempty"`
}

// DeleteParameterProviderRequest identifies the provider to delete.
type DeleteParameterProviderRequest struct {
	ParameterProvider ParameterProviderEntity `json:"parameterProvider"`
}

// FetchParameterProviderParametersRequest asks the provider to fetch its parameters.
type FetchParameterProviderParametersRequest struct {
	ID       string   `json:"id" validate:"required"`
	Revision Revision `json:"revision"`
}

// ApplyParametersRequest asks the server to apply fetched parameters to contexts.
type ApplyParametersRequest struct {
	ID                           string                        `json:"id" validate:"required"`
	Revision                     Revision                      `json:"revision"`
	ParameterGroupConfigurations []ParameterGroupConfiguration `json:"parameterGroupConfigurations" validate:"dive"`
}

// =============================================================================
// Asynchronous apply requests
// =============================================================================

// UpdateStep is one stage of an asynchronous apply request.
type UpdateStep struct {
	Description   string `json:"description"`
	Complete      bool   `json:"complete"`
	FailureReason string `json:"failureReason,omitempty"`
}

// ParameterProviderApplyParametersRequest is the server-side long running request.
type ParameterProviderApplyParametersRequest struct {
	RequestID               string       `json:"requestId"`
	URI                     string       `json:"uri"`
	SubmissionTime          string       `json:"submissionTime,omitempty"`
	LastUpdated             string       `json:"lastUpdated,omitempty"`
	Complete                bool         `json:"complete"`
	FailureReason           string       `json:"failureReason,omitempty"`
	PercentCompleted        int          `json:"percentCompleted"`
	State                   string       `json:"state,omitempty"`
	UpdateSteps             []UpdateStep `json:"updateSteps,omitempty"`
	ParameterProviderID     string       `json:"parameterProviderId,omitempty"`
	ParameterContextUpdates []struct {
		ParameterContext ParameterContextReference `json:"parameterContext"`
	} `json:"parameterContextUpdates,omitempty"`
}

// Failed reports whether the request finished with a failure reason.
func (r ParameterProviderApplyParametersRequest) Failed() bool {
	return r.Complete && r.FailureReason != ""
}

// ApplyParametersRequestEntity is the envelope around an apply request.
type ApplyParametersRequestEntity struct {
	Request ParameterProviderApplyParametersRequest `json:"request"`
}

// =============================================================================
// Component history
// =============================================================================

// PreviousValue is one historical value of a property.
type PreviousValue struct {
	PreviousValue string `json:"previousValue"`
	Timestamp     string `json:"timestamp"`
	UserIdentity  string `json:"userIdentity"`
}

// PropertyHistory is the value history of one property.
type PropertyHistory struct {
	PreviousValues []PreviousValue `json:"previousValues"`
}

// ComponentHistory is the property history of a component.
type ComponentHistory struct {
	ComponentID     string                     `json:"componentId"`
	PropertyHistory map[string]PropertyHistory `json:"propertyHistory"`
}

// ComponentHistoryEntity is the history envelope.
type ComponentHistoryEntity struct {
	ComponentHistory ComponentHistory `json:"componentHistory"`
}

// EditParameterProviderRequest is the data an edit dialog opens with.
type EditParameterProviderRequest struct {
	ID                string                  `json:"id" validate:"required"`
	ParameterProvider ParameterProviderEntity `json:"parameterProvider"`
	History           *ComponentHistory       `json:"history,omitempty"`
}
