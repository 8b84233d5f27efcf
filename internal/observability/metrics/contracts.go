// Package metrics provides Prometheus instrumentation for veriforge.
package metrics

// ContractRegister records a contract registration.
func ContractRegister(status string) {
	if !enabled {
		return
	}
	contractRegisterTotal.WithLabelValues(status).Inc()
}

// ContractDelete records a contract deletion.
func ContractDelete(status string) {
	if !enabled {
		return
	}
	contractDeleteTotal.WithLabelValues(status).Inc()
}

// DeploymentDeploy records a deployment sent through the service wallet.
func DeploymentDeploy(chain, status string) {
	if !enabled {
		return
	}
	deploymentDeployTotal.WithLabelValues(chain, status).Inc()
}

// DeploymentRecord records a deployment recorded from outside.
func DeploymentRecord(chain, status string) {
	if !enabled {
		return
	}
	deploymentRecordTotal.WithLabelValues(chain, status).Inc()
}

// BatchExecute records a call batch submission.
func BatchExecute(status string) {
	if !enabled {
		return
	}
	batchExecuteTotal.WithLabelValues(status).Inc()
}
